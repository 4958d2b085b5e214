// Package config provides application configuration.
//
// Configuration is layered:
//  1. Built-in defaults
//  2. YAML config file (explicit path, LOANBOT_CONFIG, ./config.yaml)
//  3. Environment variable overrides
//  4. Validation
package config

import (
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Backend      BackendConfig      `yaml:"backend"`
	Conversation ConversationConfig `yaml:"conversation"`
	Sessions     SessionsConfig     `yaml:"sessions"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Mock         MockConfig         `yaml:"mock"`
}

// ServerConfig holds chat server settings.
type ServerConfig struct {
	Port           string        `yaml:"port"            env:"PORT"`
	FrontendURL    string        `yaml:"frontend_url"    env:"FRONTEND_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"  env:"MAX_BODY_BYTES"`
	HealthPort     string        `yaml:"health_port"     env:"HEALTH_GRPC_PORT"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

// BackendConfig points the chat server at the bank API.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL"`
	APIKey  string        `yaml:"api_key"  env:"YB_API_KEY"`
	Timeout time.Duration `yaml:"timeout"  env:"BACKEND_TIMEOUT"`
}

// ConversationConfig tunes the conversation engine.
type ConversationConfig struct {
	MaxOTPRetries int      `yaml:"max_otp_retries" env:"MAX_OTP_RETRIES"`
	CSATURL       string   `yaml:"csat_url"        env:"CSAT_AGENT_URL"`
	ExposeOTP     bool     `yaml:"expose_otp"      env:"DEBUG_EXPOSE_OTP"`
	OTPAllowList  []string `yaml:"otp_allow_list"  env:"OTP_ALLOW_LIST"`
}

// SessionsConfig controls the in-memory conversation store.
type SessionsConfig struct {
	TTL           time.Duration `yaml:"ttl"            env:"SESSION_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL"`
	MaxSessions   int           `yaml:"max_sessions"   env:"MAX_SESSIONS"`
	// Secret signs the session cookie. A random one is generated at startup
	// when empty, which logs every visitor out on restart.
	Secret string `yaml:"secret" env:"SESSION_SECRET"`
}

// RateLimitConfig bounds turns per conversation.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS"`
	Window   time.Duration `yaml:"window"   env:"RATE_LIMIT_WINDOW"`
}

// MockConfig configures the mock bank backend.
type MockConfig struct {
	Port         string        `yaml:"port"          env:"MOCK_PORT"`
	HealthPort   string        `yaml:"health_port"   env:"MOCK_HEALTH_GRPC_PORT"`
	DBPath       string        `yaml:"db_path"       env:"MOCK_DB_PATH"`
	APIKey       string        `yaml:"api_key"       env:"YB_API_KEY"`
	OTPCodes     []string      `yaml:"otp_codes"     env:"MOCK_OTP_CODES"`
	OTPRetention time.Duration `yaml:"otp_retention" env:"MOCK_OTP_RETENTION"`
}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           "3002",
			RequestTimeout: 15 * time.Second,
			MaxBodyBytes:   64 << 10,
			HealthPort:     "9092",
			AllowedOrigins: []string{"*"},
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:3001",
			APIKey:  DevAPIKey,
			Timeout: 10 * time.Second,
		},
		Conversation: ConversationConfig{
			MaxOTPRetries: 2,
			CSATURL:       "https://csat-agent.yellow.ai",
		},
		Sessions: SessionsConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
			MaxSessions:   10000,
		},
		RateLimit: RateLimitConfig{
			Requests: 30,
			Window:   time.Minute,
		},
		Mock: MockConfig{
			Port:         "3001",
			HealthPort:   "9093",
			DBPath:       "./data/mockbank.db",
			APIKey:       DevAPIKey,
			OTPCodes:     []string{"1234", "5678", "7889", "1209"},
			OTPRetention: 24 * time.Hour,
		},
	}
}

// DevAPIKey is shared by the chat server and the mock bank out of the box.
const DevAPIKey = "loanbot-dev-key"

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.FrontendURL == "" ||
		strings.Contains(c.Server.FrontendURL, "localhost") ||
		strings.Contains(c.Server.FrontendURL, "127.0.0.1")
}
