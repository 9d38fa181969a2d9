package database

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stms-api/pkg/config"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DatabaseConfig{
		Host:             "db.internal",
		Port:             5433,
		User:             "report",
		Password:         "p@ss word",
		Name:             "stms",
		SSLMode:          "require",
		StatementTimeout: 15 * time.Second,
	})

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:5433", parsed.Host)
	assert.Equal(t, "/stms", parsed.Path)
	password, _ := parsed.User.Password()
	assert.Equal(t, "p@ss word", password)

	query := parsed.Query()
	assert.Equal(t, "require", query.Get("sslmode"))
	assert.Equal(t, "on", query.Get("default_transaction_read_only"))
	assert.Equal(t, "15000", query.Get("statement_timeout"))
	assert.Equal(t, "stms-reporting", query.Get("application_name"))
}
