package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"chatcal/core/config"
	"chatcal/core/constants"
	"chatcal/core/errors"
	"chatcal/core/logger"
	"chatcal/core/utils"
	"chatcal/modules/auth/dto"
	"chatcal/modules/auth/entity"
	"chatcal/modules/auth/repository"
)

type AuthServiceInterface interface {
	LoginWithGoogle(ctx context.Context, idToken string) (*dto.LoginResponse, error)
	Profile(ctx context.Context, googleSub string) (*dto.UserProfile, error)
}

type authService struct {
	repo         repository.AuthRepositoryInterface
	httpClient   *http.Client
	tokenInfoURL string
	audience     string
}

func NewAuthService(repo repository.AuthRepositoryInterface, cfg *config.Config) AuthServiceInterface {
	return &authService{
		repo:         repo,
		httpClient:   &http.Client{Timeout: constants.GoogleHTTPTimeout},
		tokenInfoURL: constants.GoogleTokenInfoAPI,
		audience:     cfg.GoogleAPI.ClientID,
	}
}

// LoginWithGoogle verifies a Google ID token against the tokeninfo endpoint,
// upserts the account and issues an API access token. The audience check
// binds the token to this application's OAuth client.
func (s *authService) LoginWithGoogle(ctx context.Context, idToken string) (*dto.LoginResponse, error) {
	if idToken == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "id_token is required", nil)
	}

	info, err := s.verifyIDToken(ctx, idToken)
	if err != nil {
		logger.Error("AuthService:LoginWithGoogle:Verify:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrUnauthorized, "invalid Google ID token", err)
	}

	if info.Audience != s.audience {
		logger.Warn("AuthService:LoginWithGoogle:AudienceMismatch", "aud", info.Audience)
		return nil, errors.NewAppError(errors.ErrUnauthorized, "token issued for a different client", nil)
	}
	if info.EmailVerified != "true" {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Google account email is not verified", nil)
	}

	user, err := s.repo.UpsertUser(ctx, &entity.User{
		GoogleSub: info.Sub,
		Email:     info.Email,
		Name:      info.Name,
		Picture:   info.Picture,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to persist user", err)
	}

	accessToken, err := utils.GenerateToken(info.Sub, user.Email, user.Name, constants.ScopeTokenAccess)
	if err != nil {
		logger.Error("AuthService:LoginWithGoogle:GenerateToken:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to issue access token", err)
	}

	logger.Info("User signed in", "email", user.Email)
	return &dto.LoginResponse{
		AccessToken: accessToken,
		User: dto.UserProfile{
			ID:      user.ID.String(),
			Email:   user.Email,
			Name:    user.Name,
			Picture: user.Picture,
		},
	}, nil
}

func (s *authService) Profile(ctx context.Context, googleSub string) (*dto.UserProfile, error) {
	user, err := s.repo.GetUserByGoogleSub(ctx, googleSub)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil, errors.NewAppError(errors.ErrNotFound, "user not found", err)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load user", err)
	}

	return &dto.UserProfile{
		ID:      user.ID.String(),
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
	}, nil
}

func (s *authService) verifyIDToken(ctx context.Context, idToken string) (*dto.GoogleTokenInfo, error) {
	endpoint := s.tokenInfoURL + "?" + url.Values{"id_token": {idToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo rejected token: status %d: %s", resp.StatusCode, string(body))
	}

	var info dto.GoogleTokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode tokeninfo response: %w", err)
	}
	return &info, nil
}
