package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"railwatch/internal/db"
	"railwatch/internal/types"
)

// API keys look like "rw_live_AbCdEfGh...". The tag plus the first
// keyPrefixLength characters of the secret form the stored lookup prefix; the
// full secret is only ever stored as a bcrypt hash.
const (
	liveKeyTag      = "rw_live_"
	testKeyTag      = "rw_test_"
	keyPrefixLength = 8
)

// KeyStore is the subset of the API key repository the auth middleware needs.
type KeyStore interface {
	FindByPrefix(ctx context.Context, prefix string) (*db.APIKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// APIKeyAuth authenticates requests by the X-API-Key header. A missing header
// is 401; an unknown, malformed, revoked, or non-matching key is 403. The
// last-used timestamp update is best effort and never fails the request.
func (s *Server) APIKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing, "missing X-API-Key header", nil))
			return
		}

		prefix, ok := keyPrefix(key)
		if !ok {
			Error(w, r, types.NewAppError(types.ErrCodeAuthKeyInvalid, "malformed API key", nil))
			return
		}

		record, err := s.keys.FindByPrefix(r.Context(), prefix)
		if err != nil {
			Error(w, r, err)
			return
		}

		if !record.Active() {
			Error(w, r, types.NewAppError(types.ErrCodeAuthKeyInvalid, "API key has been revoked", nil))
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(record.KeyHash), []byte(key)) != nil {
			Error(w, r, types.NewAppError(types.ErrCodeAuthKeyInvalid, "API key does not match", nil))
			return
		}

		if err := s.keys.TouchLastUsed(r.Context(), record.ID, time.Now()); err != nil {
			s.logger.WarnContext(r.Context(), "failed to update key last-used timestamp",
				"key_prefix", prefix, "error", err)
		}

		next.ServeHTTP(w, r)
	})
}

// keyPrefix derives the stored lookup prefix from a presented key. It returns
// false when the key has no recognized tag or is too short.
func keyPrefix(key string) (string, bool) {
	var tag string
	switch {
	case strings.HasPrefix(key, liveKeyTag):
		tag = liveKeyTag
	case strings.HasPrefix(key, testKeyTag):
		tag = testKeyTag
	default:
		return "", false
	}

	secret := strings.TrimPrefix(key, tag)
	if len(secret) < keyPrefixLength {
		return "", false
	}
	return tag + secret[:keyPrefixLength], true
}
