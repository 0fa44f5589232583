package repository

import (
	"context"
	"errors"
	"time"

	"chatcal/core/cache"
	"chatcal/core/constants"
	"chatcal/core/logger"
	"chatcal/core/utils"
	"chatcal/modules/calendar/entity"
)

// ErrNoCredential indicates the credential slot is empty. Absence is a
// normal condition, not a failure.
var ErrNoCredential = errors.New("calendar: no stored credential")

// CredentialStore persists the single calendar credential slot.
type CredentialStore interface {
	// Save overwrites the slot unconditionally.
	Save(ctx context.Context, cred *entity.Credential) error
	// Load returns the stored credential, or ErrNoCredential when the slot
	// is empty.
	Load(ctx context.Context) (*entity.Credential, error)
	// Clear empties the slot. Idempotent.
	Clear(ctx context.Context) error
}

// redisCredentialStore keeps the four credential fields under fixed keys.
// Tokens are encrypted at rest; expiry and owner email are stored plain.
type redisCredentialStore struct {
	cache  cache.Cache
	cipher *utils.TokenCipher
}

func NewRedisCredentialStore(c cache.Cache, cipher *utils.TokenCipher) CredentialStore {
	return &redisCredentialStore{cache: c, cipher: cipher}
}

func (s *redisCredentialStore) Save(ctx context.Context, cred *entity.Credential) error {
	accessToken, err := s.cipher.Encrypt(cred.AccessToken)
	if err != nil {
		logger.Error("CredentialStore:Save:EncryptAccessToken:Error", "error", err)
		return err
	}
	refreshToken, err := s.cipher.Encrypt(cred.RefreshToken)
	if err != nil {
		logger.Error("CredentialStore:Save:EncryptRefreshToken:Error", "error", err)
		return err
	}

	fields := map[string]string{
		constants.RedisKeyCalendarAccessToken:  accessToken,
		constants.RedisKeyCalendarRefreshToken: refreshToken,
		constants.RedisKeyCalendarTokenExpiry:  cred.ExpiresAt.Format(time.RFC3339),
		constants.RedisKeyCalendarOwnerEmail:   cred.OwnerEmail,
	}
	for key, value := range fields {
		if err := s.cache.Set(ctx, key, value, 0); err != nil {
			logger.Error("CredentialStore:Save:Set:Error", "key", key, "error", err)
			return err
		}
	}
	return nil
}

func (s *redisCredentialStore) Load(ctx context.Context) (*entity.Credential, error) {
	accessToken, err := s.load(ctx, constants.RedisKeyCalendarAccessToken)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.load(ctx, constants.RedisKeyCalendarRefreshToken)
	if err != nil {
		return nil, err
	}
	expiryRaw, err := s.load(ctx, constants.RedisKeyCalendarTokenExpiry)
	if err != nil {
		return nil, err
	}
	ownerEmail, err := s.load(ctx, constants.RedisKeyCalendarOwnerEmail)
	if err != nil {
		return nil, err
	}

	access, err := s.cipher.Decrypt(accessToken)
	if err != nil {
		logger.Error("CredentialStore:Load:DecryptAccessToken:Error", "error", err)
		return nil, err
	}
	refresh, err := s.cipher.Decrypt(refreshToken)
	if err != nil {
		logger.Error("CredentialStore:Load:DecryptRefreshToken:Error", "error", err)
		return nil, err
	}

	expiresAt, err := time.Parse(time.RFC3339, expiryRaw)
	if err != nil {
		logger.Error("CredentialStore:Load:ParseExpiry:Error", "error", err, "value", expiryRaw)
		return nil, err
	}

	return &entity.Credential{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		OwnerEmail:   ownerEmail,
	}, nil
}

func (s *redisCredentialStore) load(ctx context.Context, key string) (string, error) {
	val, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return "", ErrNoCredential
	}
	return val, err
}

func (s *redisCredentialStore) Clear(ctx context.Context) error {
	return s.cache.Del(ctx,
		constants.RedisKeyCalendarAccessToken,
		constants.RedisKeyCalendarRefreshToken,
		constants.RedisKeyCalendarTokenExpiry,
		constants.RedisKeyCalendarOwnerEmail,
	)
}
