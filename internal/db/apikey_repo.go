package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"railwatch/internal/types"
)

// APIKey is one B2B client credential. KeyHash is the bcrypt hash of the
// plaintext secret; plaintext is never stored. KeyPrefix is the short
// non-secret identifier clients send alongside the secret.
type APIKey struct {
	ID         string
	Name       string
	KeyPrefix  string
	KeyHash    string
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Active reports whether the key may still authenticate requests.
func (k *APIKey) Active() bool {
	return k.RevokedAt == nil
}

// APIKeyRepository provides data access for the api_keys table.
type APIKeyRepository struct {
	db DBTX
}

// NewAPIKeyRepository creates an APIKeyRepository backed by the given
// database connection (pool or transaction).
func NewAPIKeyRepository(db DBTX) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// FindByPrefix looks up a key by its public prefix. Returns an AppError with
// code auth_api_key_invalid when no key matches, so the auth middleware never
// leaks whether a prefix exists.
func (r *APIKeyRepository) FindByPrefix(ctx context.Context, prefix string) (*APIKey, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, key_prefix, key_hash, revoked_at, last_used_at, created_at
		 FROM api_keys WHERE key_prefix = $1`,
		prefix)

	var key APIKey
	err := row.Scan(&key.ID, &key.Name, &key.KeyPrefix, &key.KeyHash,
		&key.RevokedAt, &key.LastUsedAt, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeAuthKeyInvalid, "unknown API key", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to look up API key", err)
	}
	return &key, nil
}

// TouchLastUsed records key usage. Failures are the caller's to log and
// swallow; losing a last-used timestamp never fails a request.
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update API key usage", err)
	}
	return nil
}
