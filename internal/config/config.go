package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Remote   RemoteConfig   `yaml:"remote"`
	Signing  SigningConfig  `yaml:"signing"`
	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig Database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration. Leaving URL empty
// disables event publishing.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// RemoteConfig upstream oracle endpoints (check-address, fees, assets,
// session keys)
type RemoteConfig struct {
	ExternalAPIHost string `yaml:"external_api_host"`
	SafeAPIHost     string `yaml:"safe_api_host"`
	SessionAPIHost  string `yaml:"session_api_host"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout for remote oracle calls.
func (c RemoteConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SigningConfig request signing identity configuration
type SigningConfig struct {
	UserID         string `yaml:"user_id"`
	PrivateKeySeed string `yaml:"private_key_seed"` // base64url, 32 bytes
	CounterpartyID string `yaml:"counterparty_id"`
	MaxSkewSeconds int    `yaml:"max_skew_seconds"`
}

// MaxSkew returns the signature freshness window used by verification.
func (c SigningConfig) MaxSkew() time.Duration {
	if c.MaxSkewSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.MaxSkewSeconds) * time.Second
}

// AuthConfig JWT configuration for client-facing endpoints
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// AppConfig global application configuration
var AppConfig *Config

// LoadConfig loads the configuration file and applies environment
// variable overrides
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)

	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}

	AppConfig = &config
	log.Printf("Configuration loaded from %s", configPath)
	return nil
}

// overrideFromEnv applies environment variable overrides
func overrideFromEnv(config *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.Database.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		config.NATS.URL = v
	}
	if v := os.Getenv("EXTERNAL_API_HOST"); v != "" {
		config.Remote.ExternalAPIHost = v
	}
	if v := os.Getenv("SAFE_API_HOST"); v != "" {
		config.Remote.SafeAPIHost = v
	}
	if v := os.Getenv("SESSION_API_HOST"); v != "" {
		config.Remote.SessionAPIHost = v
	}
	if v := os.Getenv("SIGNING_USER_ID"); v != "" {
		config.Signing.UserID = v
	}
	if v := os.Getenv("SIGNING_PRIVATE_KEY_SEED"); v != "" {
		config.Signing.PrivateKeySeed = v
	}
	if v := os.Getenv("SIGNING_COUNTERPARTY_ID"); v != "" {
		config.Signing.CounterpartyID = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}
