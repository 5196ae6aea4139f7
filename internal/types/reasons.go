package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Reasons is a slice of Reason that implements sql.Scanner and driver.Valuer
// for JSONB column storage in the prediction log.
type Reasons []Reason

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (r *Reasons) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("reasons: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, r)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (r Reasons) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Messages returns just the message strings, in order.
func (r Reasons) Messages() []string {
	out := make([]string, 0, len(r))
	for _, reason := range r {
		out = append(out, reason.Message)
	}
	return out
}
