package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"chatcal/core/config"
	"chatcal/core/constants"
	"chatcal/core/logger"
	"chatcal/modules/calendar/dto"
)

// TokenExchangeClient speaks the OAuth2 authorization-code and refresh-token
// grants to the provider token endpoint. Neither call retries internally: an
// authorization code is single-use, and refresh retry policy belongs to the
// session.
type TokenExchangeClient interface {
	ExchangeCode(ctx context.Context, code string) (*dto.TokenResponse, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
}

type googleTokenClient struct {
	httpClient   *http.Client
	endpoint     string
	clientID     string
	clientSecret string
	redirectURI  string
}

func NewGoogleTokenClient(cfg config.GoogleAPIConfig) TokenExchangeClient {
	endpoint := cfg.TokenEndpoint
	if endpoint == "" {
		endpoint = constants.GoogleTokenEndpoint
	}
	return &googleTokenClient{
		httpClient:   &http.Client{Timeout: constants.GoogleHTTPTimeout},
		endpoint:     endpoint,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
	}
}

func (c *googleTokenClient) ExchangeCode(ctx context.Context, code string) (*dto.TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {c.redirectURI},
	}

	status, body, err := c.post(ctx, form)
	if err != nil {
		logger.Error("TokenClient:ExchangeCode:Post:Error", "error", err)
		return nil, &TransportError{Err: err}
	}
	if status < 200 || status >= 300 {
		logger.Warn("TokenClient:ExchangeCode:Rejected", "status", status)
		return nil, &ExchangeError{StatusCode: status, Body: body}
	}

	var token dto.TokenResponse
	if err := json.Unmarshal([]byte(body), &token); err != nil {
		logger.Error("TokenClient:ExchangeCode:Decode:Error", "error", err)
		return nil, &TransportError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	return &token, nil
}

func (c *googleTokenClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	status, body, err := c.post(ctx, form)
	if err != nil {
		logger.Error("TokenClient:RefreshAccessToken:Post:Error", "error", err)
		return nil, &TransportError{Err: err}
	}
	if status < 200 || status >= 300 {
		logger.Warn("TokenClient:RefreshAccessToken:Rejected", "status", status)
		return nil, &RefreshError{StatusCode: status, Body: body}
	}

	var token dto.TokenResponse
	if err := json.Unmarshal([]byte(body), &token); err != nil {
		logger.Error("TokenClient:RefreshAccessToken:Decode:Error", "error", err)
		return nil, &TransportError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	return &token, nil
}

func (c *googleTokenClient) post(ctx context.Context, form url.Values) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}
