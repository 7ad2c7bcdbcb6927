package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bookmarkd/bookmarkd/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TokenStorageType represents the different storage backends supported for
// the persisted token pair.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
	TokenStorageTypeRedis   TokenStorageType = "redis"
	TokenStorageTypeTable   TokenStorageType = "table"
)

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigServerHost      = "127.0.0.1"
	DefaultConfigServerPort      = 3001
	DefaultConfigShutdownTimeout = 5 * time.Second
	DefaultConfigStorageType     = TokenStorageTypeFile
	DefaultConfigStorageEnvKey   = "BOOKMARKD_TOKEN_"
	DefaultConfigRedirectURI     = "http://localhost:3001/callback"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// OAuthConfig holds the registered OAuth2 application credentials and
// provider endpoints. Endpoints default to X in the oauth package.
type OAuthConfig struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri" validate:"required,url"`
	AuthURL      string `json:"auth_url,omitempty" validate:"omitempty,url"`
	TokenURL     string `json:"token_url,omitempty" validate:"omitempty,url"`
}

// UpstreamConfig holds downstream bookmarks API configuration.
type UpstreamConfig struct {
	// BaseURL of the X API; empty means the public origin.
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`
	// UserID of the bookmarks owner; resolved from the token when empty.
	UserID string `json:"user_id,omitempty"`
}

// RedisConfig holds connection settings for the redis storage backend.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// TableConfig holds settings for the remote table storage backend.
type TableConfig struct {
	// URL of the table endpoint, e.g. https://project.supabase.co/rest/v1/tokens
	URL    string `json:"url" validate:"omitempty,url"`
	APIKey string `json:"api_key"`
}

// StorageConfig describes how to construct the TokenStore.
type StorageConfig struct {
	Type TokenStorageType `json:"type" validate:"required,oneof=file env keyring redis table"`

	// Backend-specific settings (mutually exclusive based on Type)
	File        string      `json:"file,omitempty"`         // For file storage: path to token file
	EnvPrefix   string      `json:"env_prefix,omitempty"`   // For env storage: variable name prefix
	KeyringUser string      `json:"keyring_user,omitempty"` // For keyring storage: user identifier
	Redis       RedisConfig `json:"redis,omitempty"`
	Table       TableConfig `json:"table,omitempty"`
}

// NewTokenStore creates a TokenStore from the storage configuration.
func (s *StorageConfig) NewTokenStore() (tokenstore.TokenStore, error) {
	switch s.Type {
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(s.File)
	case TokenStorageTypeEnv:
		return tokenstore.NewEnvStore(s.EnvPrefix)
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyringStore("bookmarkd-tokens", s.KeyringUser)
	case TokenStorageTypeRedis:
		return tokenstore.NewRedisStoreFromOptions(tokenstore.RedisOptions{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		})
	case TokenStorageTypeTable:
		return tokenstore.NewTableStore(s.Table.URL, s.Table.APIKey)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", s.Type)
	}
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json"`
	Server    ServerConfig   `json:"server"`
	Shutdown  ShutdownConfig `json:"shutdown"`
	OAuth     OAuthConfig    `json:"oauth"`
	Upstream  UpstreamConfig `json:"upstream"`
	Storage   StorageConfig  `json:"storage"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.OAuth.RedirectURI == "" {
		c.OAuth.RedirectURI = DefaultConfigRedirectURI
	}
	if c.Storage.Type == "" {
		c.Storage.Type = DefaultConfigStorageType
	}

	// Dynamic defaults based on storage type
	switch c.Storage.Type {
	case TokenStorageTypeFile:
		if c.Storage.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("storage.file required (auto-detect failed: %w)", err)
			}
			c.Storage.File = filepath.Join(configDir, "bookmarkd", "tokens.json")
		}
	case TokenStorageTypeEnv:
		if c.Storage.EnvPrefix == "" {
			c.Storage.EnvPrefix = DefaultConfigStorageEnvKey
		}
	case TokenStorageTypeKeyring:
		if c.Storage.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("storage.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Storage.KeyringUser = currentUser.Username
		}
	case TokenStorageTypeRedis:
		if c.Storage.Redis.Addr == "" {
			c.Storage.Redis.Addr = "localhost:6379"
		}
	case TokenStorageTypeTable:
		// url and api_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Storage.Type {
	case TokenStorageTypeFile:
		if c.Storage.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeEnv:
		if c.Storage.EnvPrefix == "" {
			return errors.New("env_prefix required for env storage")
		}
	case TokenStorageTypeKeyring:
		if c.Storage.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	case TokenStorageTypeRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New("redis.addr required for redis storage")
		}
	case TokenStorageTypeTable:
		if c.Storage.Table.URL == "" {
			return errors.New("table.url required for table storage")
		}
		if c.Storage.Table.APIKey == "" {
			return errors.New("table.api_key required for table storage")
		}
	}

	return nil
}
