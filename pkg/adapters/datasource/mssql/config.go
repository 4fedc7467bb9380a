package mssql

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-trane/pkg/config"
)

// Config contains SQL Server connection options (SQL authentication).
type Config struct {
	Host                   string
	Port                   int
	Database               string
	Username               string
	Password               string
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int // seconds
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a generic config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              datasource.ConfigInt(m, "port", DefaultPort()),
		Encrypt:           true,
		ConnectionTimeout: datasource.ConfigInt(m, "connection_timeout", DefaultConnectionTimeout()),
	}

	var ok bool
	if cfg.Host, ok = m["host"].(string); !ok || cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Database, ok = m["database"].(string); !ok || cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}
	if cfg.Username, ok = m["user"].(string); !ok || cfg.Username == "" {
		return nil, fmt.Errorf("user is required")
	}
	if password, ok := m["password"].(string); ok {
		cfg.Password = password
	}

	switch v := m["encrypt"].(type) {
	case bool:
		cfg.Encrypt = v
	case string:
		// "true", "false", "strict"
		cfg.Encrypt = v == "true" || v == "strict"
	}
	if trust, ok := m["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}
	return cfg, nil
}

func buildConnectionString(cfg *Config) string {
	query := url.Values{}
	query.Add("database", cfg.Database)
	query.Add("encrypt", strconv.FormatBool(cfg.Encrypt))
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(cfg.ConnectionTimeout))
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", config.ResolveHostForDocker(cfg.Host), cfg.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
