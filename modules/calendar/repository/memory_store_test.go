package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcal/modules/calendar/entity"
)

func TestMemoryCredentialStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, store.Save(ctx, &entity.Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    expiry,
		OwnerEmail:   "owner@example.com",
	}))

	cred, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", cred.AccessToken)
	assert.Equal(t, "refresh", cred.RefreshToken)
	assert.Equal(t, expiry, cred.ExpiresAt)
	assert.Equal(t, "owner@example.com", cred.OwnerEmail)

	// Mutating the loaded copy must not leak into the store.
	cred.AccessToken = "tampered"
	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", again.AccessToken)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)

	// Clear is idempotent.
	require.NoError(t, store.Clear(ctx))
}
