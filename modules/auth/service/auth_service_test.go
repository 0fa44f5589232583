package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcal/core/config"
	"chatcal/core/utils"
	"chatcal/modules/auth/entity"
	"chatcal/modules/auth/repository"
)

type fakeAuthRepo struct {
	users map[string]*entity.User
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: map[string]*entity.User{}}
}

func (f *fakeAuthRepo) UpsertUser(_ context.Context, user *entity.User) (*entity.User, error) {
	existing, ok := f.users[user.GoogleSub]
	if !ok {
		saved := *user
		saved.BaseEntity.CreatedAt = time.Now()
		f.users[user.GoogleSub] = &saved
		return &saved, nil
	}
	existing.Email = user.Email
	existing.Name = user.Name
	existing.Picture = user.Picture
	return existing, nil
}

func (f *fakeAuthRepo) GetUserByID(_ context.Context, _ uuid.UUID) (*entity.User, error) {
	return nil, repository.ErrUserNotFound
}

func (f *fakeAuthRepo) GetUserByGoogleSub(_ context.Context, sub string) (*entity.User, error) {
	user, ok := f.users[sub]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func setupConfig(t *testing.T) {
	t.Helper()
	config.Set(&config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpiryMinutes: 60},
	})
}

func tokenInfoServer(t *testing.T, info map[string]string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("id_token"))
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(info)
	}))
}

func newTestAuthService(repo repository.AuthRepositoryInterface, tokenInfoURL string) *authService {
	return &authService{
		repo:         repo,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		tokenInfoURL: tokenInfoURL,
		audience:     "client-id",
	}
}

func TestLoginWithGoogle_Success(t *testing.T) {
	setupConfig(t)

	server := tokenInfoServer(t, map[string]string{
		"sub":            "google-sub-123",
		"email":          "user@gmail.com",
		"email_verified": "true",
		"name":           "Test User",
		"aud":            "client-id",
	}, http.StatusOK)
	defer server.Close()

	repo := newFakeAuthRepo()
	svc := newTestAuthService(repo, server.URL)

	resp, err := svc.LoginWithGoogle(context.Background(), "valid-id-token")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "user@gmail.com", resp.User.Email)

	// The issued token carries the email the calendar session compares
	// against the credential owner.
	claims, err := utils.ValidateAndParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "google-sub-123", claims.UserID)
	assert.Equal(t, "user@gmail.com", claims.Email)

	// Signing in again updates the same account rather than creating a new
	// one.
	_, err = svc.LoginWithGoogle(context.Background(), "valid-id-token")
	require.NoError(t, err)
	assert.Len(t, repo.users, 1)
}

func TestLoginWithGoogle_AudienceMismatch(t *testing.T) {
	setupConfig(t)

	server := tokenInfoServer(t, map[string]string{
		"sub":            "google-sub-123",
		"email":          "user@gmail.com",
		"email_verified": "true",
		"aud":            "someone-elses-client",
	}, http.StatusOK)
	defer server.Close()

	svc := newTestAuthService(newFakeAuthRepo(), server.URL)

	_, err := svc.LoginWithGoogle(context.Background(), "foreign-token")
	assert.Error(t, err)
}

func TestLoginWithGoogle_RejectedToken(t *testing.T) {
	setupConfig(t)

	server := tokenInfoServer(t, map[string]string{"error": "invalid_token"}, http.StatusBadRequest)
	defer server.Close()

	svc := newTestAuthService(newFakeAuthRepo(), server.URL)

	_, err := svc.LoginWithGoogle(context.Background(), "garbage")
	assert.Error(t, err)
}

func TestLoginWithGoogle_UnverifiedEmail(t *testing.T) {
	setupConfig(t)

	server := tokenInfoServer(t, map[string]string{
		"sub":            "google-sub-123",
		"email":          "user@gmail.com",
		"email_verified": "false",
		"aud":            "client-id",
	}, http.StatusOK)
	defer server.Close()

	svc := newTestAuthService(newFakeAuthRepo(), server.URL)

	_, err := svc.LoginWithGoogle(context.Background(), "unverified")
	assert.Error(t, err)
}

func TestLoginWithGoogle_EmptyToken(t *testing.T) {
	setupConfig(t)
	svc := newTestAuthService(newFakeAuthRepo(), "http://tokeninfo.invalid")

	_, err := svc.LoginWithGoogle(context.Background(), "")
	assert.Error(t, err)
}
