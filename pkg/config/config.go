package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for query-estimator.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8088"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	Auth AuthConfig `yaml:"auth"`

	// Metadata database (PostgreSQL) holding editor snippets.
	Database DatabaseConfig `yaml:"database"`

	// Analytic databases that queries are estimated against.
	Datasource DatasourceConfig `yaml:"datasource"`

	MCP MCPConfig `yaml:"mcp"`

	Estimator EstimatorConfig `yaml:"estimator"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// Audience, when set, must be present in every token's aud claim.
	Audience string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:""`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"estimator"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"query_estimator"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// DatasourceConfig holds analytic datasource settings.
type DatasourceConfig struct {
	// CatalogFile is a YAML file listing the databases available for estimation.
	CatalogFile string `yaml:"catalog_file" env:"DATASOURCES_FILE" env-default:"datasources.yaml"`
	// ConnectionTTLMinutes is how long idle datasource connections are kept alive.
	ConnectionTTLMinutes int `yaml:"connection_ttl_minutes" env:"DATASOURCE_CONNECTION_TTL_MINUTES" env-default:"5"`
	// PoolMaxConns is the maximum number of connections per datasource pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"5"`
	// MaxConnections caps the number of cached datasource executors.
	MaxConnections int `yaml:"max_connections" env:"DATASOURCE_MAX_CONNECTIONS" env-default:"20"`
	// BreakerThreshold is the number of consecutive connectivity failures after
	// which a datasource is considered down.
	BreakerThreshold int `yaml:"breaker_threshold" env:"DATASOURCE_BREAKER_THRESHOLD" env-default:"5"`
	// BreakerResetSeconds is how long a tripped datasource is skipped before a probe.
	BreakerResetSeconds int `yaml:"breaker_reset_seconds" env:"DATASOURCE_BREAKER_RESET_SECONDS" env-default:"30"`
	// EncryptionKey decrypts "enc:" values in the catalog file. Secret - not in YAML.
	EncryptionKey string `yaml:"-" env:"DATASOURCE_ENCRYPTION_KEY"`
}

// MCPConfig controls the MCP endpoint.
type MCPConfig struct {
	Enabled     bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
	LogRequests bool `yaml:"log_requests" env:"MCP_LOG_REQUESTS" env-default:"false"`
}

// EstimatorConfig lets operators adjust the text heuristics used on Trino plans.
// Empty values keep the built-in patterns.
type EstimatorConfig struct {
	Trino TrinoPatternConfig `yaml:"trino"`
}

// TrinoPatternConfig overrides the Trino memory and row regular expressions.
// The memory pattern must capture the number and the unit, the rows pattern the number.
type TrinoPatternConfig struct {
	MemoryPattern string `yaml:"memory_pattern" env:"ESTIMATOR_TRINO_MEMORY_PATTERN" env-default:""`
	RowsPattern   string `yaml:"rows_pattern" env:"ESTIMATOR_TRINO_ROWS_PATTERN" env-default:""`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := cfg.Estimator.Trino.validate(); err != nil {
		return nil, fmt.Errorf("invalid estimator configuration: %w", err)
	}

	// Use HTTPS scheme if TLS is configured
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

func (t TrinoPatternConfig) validate() error {
	if t.MemoryPattern != "" {
		re, err := regexp.Compile(t.MemoryPattern)
		if err != nil {
			return fmt.Errorf("memory_pattern: %w", err)
		}
		if re.NumSubexp() < 2 {
			return fmt.Errorf("memory_pattern must capture a value and a unit")
		}
	}
	if t.RowsPattern != "" {
		re, err := regexp.Compile(t.RowsPattern)
		if err != nil {
			return fmt.Errorf("rows_pattern: %w", err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("rows_pattern must capture a value")
		}
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
