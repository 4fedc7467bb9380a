package postgres

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-trane/pkg/config"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string // "disable", "require", "verify-ca", "verify-full"
	MaxConnections int
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// FromMap creates a Config from a generic config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{
		Port:           datasource.ConfigInt(m, "port", DefaultPort()),
		SSLMode:        "require",
		MaxConnections: datasource.ConfigInt(m, "max_connections", 0),
	}

	var ok bool
	if cfg.Host, ok = m["host"].(string); !ok || cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.User, ok = m["user"].(string); !ok || cfg.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	if cfg.Database, ok = m["database"].(string); !ok || cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}
	if password, ok := m["password"].(string); ok {
		cfg.Password = password
	}
	if sslMode, ok := m["ssl_mode"].(string); ok && sslMode != "" {
		cfg.SSLMode = sslMode
	}
	return cfg, nil
}

// buildConnectionString builds a PostgreSQL URL with escaped credentials. Inside Docker,
// localhost resolves to host.docker.internal.
func buildConnectionString(cfg *Config) string {
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", config.ResolveHostForDocker(cfg.Host), cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}
