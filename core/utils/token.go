package utils

import (
	"fmt"
	"time"

	"chatcal/core/config"

	"github.com/golang-jwt/jwt/v5"
)

// TokenData is the claim set carried by API access tokens. UserID is the
// Google subject identifier; Email is the active account's email and is what
// the calendar session compares against the cached credential owner.
type TokenData struct {
	UserID string
	Email  string
	Name   string
	Scope  string
}

type apiClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed JWT for the given user.
func GenerateToken(userID, email, name, scope string) (string, error) {
	cfg, ok := config.GetSafe()
	if !ok {
		return "", fmt.Errorf("config not initialized")
	}
	if cfg.JWT.Secret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	expiry := time.Duration(cfg.JWT.ExpiryMinutes) * time.Minute
	if scope == "refresh" {
		expiry = 30 * 24 * time.Hour
	}

	claims := apiClaims{
		Email: email,
		Name:  name,
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ValidateAndParseToken verifies the signature and expiry of a JWT and
// returns its claims.
func ValidateAndParseToken(tokenString string) (*TokenData, error) {
	cfg, ok := config.GetSafe()
	if !ok {
		return nil, fmt.Errorf("config not initialized")
	}

	var claims apiClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return &TokenData{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Scope:  claims.Scope,
	}, nil
}
