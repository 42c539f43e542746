package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureTimezoneUTC(t *testing.T) {
	dsn, err := ensureTimezoneUTC("postgres://u:p@localhost:5432/unipost?sslmode=disable")
	require.NoError(t, err)
	assert.Contains(t, dsn, "TimeZone=UTC")
	assert.Contains(t, dsn, "sslmode=disable")

	dsn, err = ensureTimezoneUTC("postgres://localhost/unipost?TimeZone=America%2FSao_Paulo")
	require.NoError(t, err)
	assert.Contains(t, dsn, "TimeZone=America%2FSao_Paulo")

	_, err = ensureTimezoneUTC("mysql://localhost/unipost")
	assert.Error(t, err)
}

func TestInitRequiresURL(t *testing.T) {
	_, err := Init(context.Background(), "", DefaultPool)
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_statistics.up.sql")
	assert.Contains(t, names, "000001_create_statistics.down.sql")
}
