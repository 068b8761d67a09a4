package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AuthServer holds all configuration for the auth/realm-directory server.
type AuthServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// TLS
	CertificatePath string `yaml:"certificate_path"`
	PrivateKeyPath  string `yaml:"private_key_path"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// External web login endpoint the client is redirected to when it has
	// no cached credentials. The "/bnetserver/login/" path is appended.
	LoginTicketURL string `yaml:"login_ticket_url"`

	// Logging
	LogDir   string `yaml:"log_dir"`
	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default: info)

	// Client data
	DB2Dir        string   `yaml:"db2_dir"`
	PrimaryLocale string   `yaml:"primary_locale"`
	Locales       []string `yaml:"locales"`

	// Session limits
	MaxSessions int `yaml:"max_sessions"`

	// Realm registry
	RealmRefreshSeconds int `yaml:"realm_refresh_seconds"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	// Connection pool parameters (optional, defaults from pgxpool apply if not set)
	MaxConns          int32  `yaml:"max_conns"`           // default: max(4, NumCPU)
	MinConns          int32  `yaml:"min_conns"`           // default: 0
	MaxConnLifetime   string `yaml:"max_conn_lifetime"`   // duration, e.g. "1h"
	MaxConnIdleTime   string `yaml:"max_conn_idle_time"`  // duration, e.g. "30m"
	HealthCheckPeriod string `yaml:"health_check_period"` // duration, e.g. "1m"
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	base := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)

	// Append pool parameters if set (non-zero/non-empty)
	var params []string
	if d.MaxConns > 0 {
		params = append(params, fmt.Sprintf("pool_max_conns=%d", d.MaxConns))
	}
	if d.MinConns > 0 {
		params = append(params, fmt.Sprintf("pool_min_conns=%d", d.MinConns))
	}
	if d.MaxConnLifetime != "" {
		params = append(params, fmt.Sprintf("pool_max_conn_lifetime=%s", d.MaxConnLifetime))
	}
	if d.MaxConnIdleTime != "" {
		params = append(params, fmt.Sprintf("pool_max_conn_idle_time=%s", d.MaxConnIdleTime))
	}
	if d.HealthCheckPeriod != "" {
		params = append(params, fmt.Sprintf("pool_health_check_period=%s", d.HealthCheckPeriod))
	}

	if len(params) > 0 {
		return base + "&" + strings.Join(params, "&")
	}
	return base
}

// LoginURL returns the full external web-login endpoint sent in the
// ChallengeExternal payload.
func (c AuthServer) LoginURL() string {
	return strings.TrimRight(c.LoginTicketURL, "/") + "/bnetserver/login/"
}

// DefaultAuthServer returns AuthServer config with sensible defaults.
func DefaultAuthServer() AuthServer {
	return AuthServer{
		BindAddress:         "0.0.0.0",
		Port:                1119,
		CertificatePath:     "config/bnetserver.cert.pem",
		PrivateKeyPath:      "config/bnetserver.key.pem",
		LoginTicketURL:      "https://127.0.0.1:8081",
		LogLevel:            "info",
		DB2Dir:              "data/dbc",
		PrimaryLocale:       "enUS",
		Locales:             []string{"enUS"},
		MaxSessions:         1000,
		RealmRefreshSeconds: 10,
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "wowauth",
			Password: "wowauth",
			DBName:   "wowauth",
			SSLMode:  "disable",
		},
	}
}

// LoadAuthServer loads auth server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadAuthServer(path string) (AuthServer, error) {
	cfg := DefaultAuthServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
