package postgres

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMap_ValidConfig(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":     "db.internal",
		"port":     float64(5432), // JSON numbers are float64
		"user":     "testuser",
		"password": "testpass",
		"database": "testdb",
		"ssl_mode": "disable",
		"schema":   "analytics",
	})
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Host:     "db.internal",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
		Schema:   "analytics",
	}, cfg)
}

func TestFromMap_Defaults(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host": "db.internal",
		"user": "testuser",
		"name": "legacy_db",
		"port": 5433,
	})
	require.NoError(t, err)

	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "legacy_db", cfg.Database)
	assert.Equal(t, DefaultSSLMode(), cfg.SSLMode)
	assert.Empty(t, cfg.Schema)
}

func TestFromMap_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		errMsg string
	}{
		{"missing host", map[string]any{"user": "u", "database": "d"}, "host is required"},
		{"missing user", map[string]any{"host": "h", "database": "d"}, "user is required"},
		{"missing database", map[string]any{"host": "h", "user": "u"}, "database is required"},
		{"bad port", map[string]any{"host": "h", "user": "u", "database": "d", "port": "x"}, "invalid port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConnectionString_EscapesCredentials(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     6543,
		User:     "svc@corp",
		Password: "p@ss/w#rd?",
		Database: "warehouse",
	}

	u, err := url.Parse(cfg.ConnectionString())
	require.NoError(t, err)

	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "svc@corp", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/w#rd?", password)
	assert.Equal(t, "db.internal:6543", u.Host)
	assert.Equal(t, "/warehouse", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}
