package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Editor  EditorConfig  `mapstructure:"editor"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
type DBConfig struct {
	DSN        string `mapstructure:"dsn"`
	Migrations string `mapstructure:"migrations"`
}

// OIDCConfig holds OIDC client configuration.
type OIDCConfig struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// SessionConfig holds admin session configuration.
type SessionConfig struct {
	Lifetime int `mapstructure:"lifetime"` // hours
}

// CacheConfig holds configuration for the SQLite lookup cache.
type CacheConfig struct {
	FilePath string        `mapstructure:"file_path"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// EditorConfig holds tuning for the article editor.
type EditorConfig struct {
	AutosaveDelay  time.Duration `mapstructure:"autosave_delay"`
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"` // open sessions unused this long are closed
}

// AuthConfig holds authorization configuration.
type AuthConfig struct {
	ModelPath string   `mapstructure:"model_path"`
	Admins    []string `mapstructure:"admins"` // subjects granted the editor role on start
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("db.dsn", "nomad:nomad@tcp(localhost:3306)/nomad?parseTime=true&multiStatements=true")
	v.SetDefault("db.migrations", "migrations")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("session.lifetime", 12)
	v.SetDefault("cache.file_path", "cache.db")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("editor.autosave_delay", "30s")
	v.SetDefault("editor.gateway_timeout", "10s")
	v.SetDefault("editor.idle_timeout", "2h")
	v.SetDefault("auth.model_path", "auth_model.conf")
	v.SetDefault("auth.admins", []string{})

	// Set up viper to read from config file
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/nomad-cms/")
	v.AddConfigPath("$HOME/.nomad-cms")

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	v.SetEnvPrefix("NOMAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
