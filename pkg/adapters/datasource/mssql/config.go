package mssql

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
	"github.com/ekaya-inc/query-estimator/pkg/config"
)

// Supported authentication methods.
const (
	AuthSQL              = "sql"
	AuthServicePrincipal = "service_principal"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	AuthMethod string

	// SQL authentication
	Username string
	Password string

	// Azure AD service principal
	TenantID     string
	ClientID     string
	ClientSecret string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a generic config map. When auth_method is
// absent it is inferred from the credentials present: client_id selects a
// service principal, a user name selects SQL authentication.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{
		Encrypt: true,
	}

	var err error
	if cfg.Host, err = datasource.RequiredString(m, "host"); err != nil {
		return nil, err
	}
	if cfg.Port, err = datasource.IntValue(m, "port", DefaultPort()); err != nil {
		return nil, err
	}
	if cfg.Database, err = datasource.RequiredString(m, "database", "name"); err != nil {
		return nil, err
	}
	if cfg.ConnectionTimeout, err = datasource.IntValue(m, "connection_timeout", DefaultConnectionTimeout()); err != nil {
		return nil, err
	}

	// "strict" is accepted as a string alias for encryption on
	if s, ok := m["encrypt"].(string); ok {
		cfg.Encrypt = s == "true" || s == "strict"
	} else {
		cfg.Encrypt = datasource.BoolValue(m, "encrypt", true)
	}
	cfg.TrustServerCertificate = datasource.BoolValue(m, "trust_server_certificate", false)

	cfg.AuthMethod, _ = datasource.StringValue(m, "auth_method")
	if cfg.AuthMethod == "" {
		switch {
		case m["client_id"] != nil:
			cfg.AuthMethod = AuthServicePrincipal
		case m["username"] != nil || m["user"] != nil:
			cfg.AuthMethod = AuthSQL
		default:
			return nil, fmt.Errorf("could not auto-detect auth method; no credentials provided")
		}
	}

	switch cfg.AuthMethod {
	case AuthSQL:
		if cfg.Username, err = datasource.RequiredString(m, "username", "user"); err != nil {
			return nil, fmt.Errorf("%w for SQL authentication", err)
		}
		cfg.Password, _ = datasource.StringValue(m, "password")
	case AuthServicePrincipal:
		for key, dst := range map[string]*string{
			"tenant_id":     &cfg.TenantID,
			"client_id":     &cfg.ClientID,
			"client_secret": &cfg.ClientSecret,
		} {
			if *dst, err = datasource.RequiredString(m, key); err != nil {
				return nil, fmt.Errorf("%w for service principal authentication", err)
			}
		}
	default:
		return nil, fmt.Errorf("invalid auth method: %s (must be sql or service_principal)", cfg.AuthMethod)
	}

	return cfg, nil
}

// DriverName returns the database/sql driver that understands the DSN.
func (c *Config) DriverName() string {
	if c.AuthMethod == AuthServicePrincipal {
		return "azuresql"
	}
	return "sqlserver"
}

// DSN builds a sqlserver:// connection URL.
func (c *Config) DSN() string {
	query := url.Values{}
	query.Set("database", c.Database)
	query.Set("encrypt", strconv.FormatBool(c.Encrypt))
	if c.TrustServerCertificate {
		query.Set("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Set("connection timeout", strconv.Itoa(c.ConnectionTimeout))
	}

	u := url.URL{
		Scheme: "sqlserver",
		Host:   net.JoinHostPort(config.ResolveHostForDocker(c.Host), strconv.Itoa(c.Port)),
	}

	switch c.AuthMethod {
	case AuthServicePrincipal:
		query.Set("fedauth", "ActiveDirectoryServicePrincipal")
		query.Set("user id", c.ClientID+"@"+c.TenantID)
		query.Set("password", c.ClientSecret)
	default:
		u.User = url.UserPassword(c.Username, c.Password)
	}

	u.RawQuery = query.Encode()
	return u.String()
}
