package trino

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	trinodriver "github.com/trinodb/trino-go-client/trino"

	"github.com/ekaya-inc/query-estimator/pkg/adapters/datasource"
	"github.com/ekaya-inc/query-estimator/pkg/config"
)

// Config contains Trino coordinator connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string // only sent over HTTPS
	Catalog  string
	Schema   string
	Source   string
	UseTLS   bool
}

// DefaultPort returns the default Trino coordinator port.
func DefaultPort() int {
	return 8080
}

// DefaultSource identifies this service in the Trino query list.
const DefaultSource = "query-estimator"

// FromMap creates a Config from a generic config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{Source: DefaultSource}

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

	cfg.Password, _ = datasource.StringValue(m, "password")
	cfg.Catalog, _ = datasource.StringValue(m, "catalog")
	cfg.Schema, _ = datasource.StringValue(m, "schema")
	if source, ok := datasource.StringValue(m, "source"); ok {
		cfg.Source = source
	}
	cfg.UseTLS = datasource.BoolValue(m, "ssl", false)

	if cfg.Password != "" && !cfg.UseTLS {
		return nil, fmt.Errorf("password authentication requires ssl")
	}

	return cfg, nil
}

// DSN renders the config in the trino driver's DSN format.
func (c *Config) DSN() (string, error) {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}

	server := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(config.ResolveHostForDocker(c.Host), strconv.Itoa(c.Port)),
	}
	if c.Password != "" {
		server.User = url.UserPassword(c.User, c.Password)
	} else {
		server.User = url.User(c.User)
	}

	driverCfg := &trinodriver.Config{
		ServerURI: server.String(),
		Source:    c.Source,
		Catalog:   c.Catalog,
		Schema:    c.Schema,
	}
	dsn, err := driverCfg.FormatDSN()
	if err != nil {
		return "", fmt.Errorf("format trino dsn: %w", err)
	}
	return dsn, nil
}
