package types

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string type that keeps sensitive values (database URLs,
// API credentials) out of logs and JSON output. fmt and encoding/json both
// see the redacted placeholder; call Unmask for the raw value.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value. Limit calls to the places that
// genuinely need the secret, such as pool construction.
func (s SecretString) Unmask() string {
	return string(s)
}
