package postgres

import (
	"net"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
	"github.com/ekaya-inc/query-estimator/pkg/config"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
	// Schema is the default search_path when a request names none.
	Schema string
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "require"
}

// FromMap creates a Config from a generic config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{SSLMode: DefaultSSLMode()}

	var err error
	if cfg.Host, err = datasource.RequiredString(m, "host"); err != nil {
		return nil, err
	}
	if cfg.Port, err = datasource.IntValue(m, "port", DefaultPort()); err != nil {
		return nil, err
	}
	if cfg.User, err = datasource.RequiredString(m, "user", "username"); err != nil {
		return nil, err
	}
	// Support legacy "name" field
	if cfg.Database, err = datasource.RequiredString(m, "database", "name"); err != nil {
		return nil, err
	}

	cfg.Password, _ = datasource.StringValue(m, "password")
	cfg.Schema, _ = datasource.StringValue(m, "schema")
	if sslMode, ok := datasource.StringValue(m, "ssl_mode"); ok {
		cfg.SSLMode = sslMode
	}

	return cfg, nil
}

// ConnectionString builds a PostgreSQL URL with every user-provided field
// escaped. When running in Docker, localhost resolves to host.docker.internal.
func (c *Config) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(config.ResolveHostForDocker(c.Host), strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}
