package constants

import "time"

// Service-wide timeouts
const (
	DefaultTimeout     = 30 * time.Second
	GoogleHTTPTimeout  = 10 * time.Second
	OpenAIHTTPTimeout  = 120 * time.Second
	ShutdownTimeout    = 15 * time.Second
	OAuthStateLifetime = 10 * time.Minute
	// CredentialRefreshWindow is how far ahead of expiry the background
	// keep-fresh task refreshes the calendar access token.
	CredentialRefreshWindow = 5 * time.Minute
)

// Database tuning
const (
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"
)

// Redis keys. The calendar credential occupies a single fixed slot, not a
// per-user keyspace; owner identity is carried in the slot itself.
const (
	RedisKeyCalendarAccessToken  = "calendar:access_token"
	RedisKeyCalendarRefreshToken = "calendar:refresh_token"
	RedisKeyCalendarTokenExpiry  = "calendar:token_expiry"
	RedisKeyCalendarOwnerEmail   = "calendar:owner_email"
)

// JWT scopes
const (
	ScopeTokenAccess = "access"
)

// Google endpoints
const (
	GoogleTokenEndpoint   = "https://oauth2.googleapis.com/token"
	GoogleTokenInfoAPI    = "https://oauth2.googleapis.com/tokeninfo"
	GoogleCalendarAPIBase = "https://www.googleapis.com/calendar/v3"
)

// Model routing for the unified chat endpoint
const (
	ChatModel       = "gpt-4o"
	SearchModel     = "gpt-4o-search-preview"
	MiniModel       = "gpt-4o-mini"
	ImageModel      = "dall-e-3"
	ClassifierModel = "gpt-4o"
)

// Conversation listing defaults
const (
	ConversationTitleMaxRunes = 50
	ConversationPageSize      = 10
)

// ImageURLLifetime bounds presigned links for generated chat images.
const ImageURLLifetime = 15 * time.Minute

// Background task schedules (asynq cron specs)
const (
	TaskCredentialKeepFresh  = "calendar:keep_fresh"
	TaskOAuthStateCleanup    = "auth:oauth_state_cleanup"
	CredentialKeepFreshEvery = "@every 10m"
	OAuthStateCleanupEvery   = "@every 30m"
)
