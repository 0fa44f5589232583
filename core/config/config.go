package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port        int    `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"DB_HOST"`
	Port     int    `mapstructure:"DB_PORT"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"REDIS_ADDR"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type GoogleAPIConfig struct {
	ClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	ClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	RedirectURI  string `mapstructure:"GOOGLE_REDIRECT_URI"`
	// TokenEndpoint and CalendarAPIBase are overridable for tests; empty
	// means the Google defaults from core/constants.
	TokenEndpoint   string `mapstructure:"GOOGLE_TOKEN_ENDPOINT"`
	CalendarAPIBase string `mapstructure:"GOOGLE_CALENDAR_API_BASE"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"OPENAI_API_KEY"`
	BaseURL string `mapstructure:"OPENAI_BASE_URL"`
}

type S3Config struct {
	Region          string `mapstructure:"S3_REGION"`
	Bucket          string `mapstructure:"S3_BUCKET"`
	AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	Endpoint        string `mapstructure:"S3_ENDPOINT"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"JWT_SECRET"`
	ExpiryMinutes int    `mapstructure:"JWT_EXPIRY_MINUTES"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	GoogleAPI GoogleAPIConfig `mapstructure:",squash"`
	OpenAI    OpenAIConfig    `mapstructure:",squash"`
	S3        S3Config        `mapstructure:",squash"`
	JWT       JWTConfig       `mapstructure:",squash"`
	// TokenCipherKey encrypts OAuth tokens at rest. 32-byte hex string.
	TokenCipherKey string `mapstructure:"TOKEN_CIPHER_KEY"`
}

var (
	instance *Config
	mu       sync.RWMutex
)

// Load reads .env (when present) plus the process environment and builds the
// process-wide Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 7070)
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "chatcal")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("JWT_EXPIRY_MINUTES", 60)

	// viper.AutomaticEnv does not populate Unmarshal without bound keys, so
	// bind every key we read explicitly.
	keys := []string{
		"PORT", "ENVIRONMENT", "FRONTEND_URL",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URI",
		"GOOGLE_TOKEN_ENDPOINT", "GOOGLE_CALENDAR_API_BASE",
		"OPENAI_API_KEY", "OPENAI_BASE_URL",
		"S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_ENDPOINT",
		"JWT_SECRET", "JWT_EXPIRY_MINUTES",
		"TOKEN_CIPHER_KEY",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	instance = &cfg
	mu.Unlock()

	return &cfg, nil
}

// Get returns the loaded Config, panicking when Load was never called.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		panic("config: Get called before Load")
	}
	return instance
}

// GetSafe returns the loaded Config, or false when Load was never called.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}

// Set replaces the process-wide config. Intended for tests.
func Set(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}
