package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"railwatch/internal/types"
)

func TestAPIKeyRepository_FindByPrefix_Success(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewAPIKeyRepository(dbMock)

	created := time.Now().Add(-24 * time.Hour)
	dbMock.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*string) = "key_1"
			*dest[1].(*string) = "sapporo-transit-app"
			*dest[2].(*string) = "rw_live_abc"
			*dest[3].(*string) = "$2a$10$hash"
			*dest[4].(**time.Time) = nil
			*dest[5].(**time.Time) = nil
			*dest[6].(*time.Time) = created
			return nil
		}})

	key, err := repo.FindByPrefix(context.Background(), "rw_live_abc")
	require.NoError(t, err)
	assert.Equal(t, "key_1", key.ID)
	assert.Equal(t, "$2a$10$hash", key.KeyHash)
	assert.True(t, key.Active())
}

func TestAPIKeyRepository_FindByPrefix_Unknown(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewAPIKeyRepository(dbMock)

	dbMock.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.FindByPrefix(context.Background(), "rw_live_nope")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthKeyInvalid, appErr.Code)
}

func TestAPIKey_Active_Revoked(t *testing.T) {
	revoked := time.Now()
	key := &APIKey{ID: "key_1", RevokedAt: &revoked}
	assert.False(t, key.Active())
}

func TestAPIKeyRepository_TouchLastUsed(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewAPIKeyRepository(dbMock)

	dbMock.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.TouchLastUsed(context.Background(), "key_1", time.Now())
	require.NoError(t, err)
	dbMock.AssertExpectations(t)
}
