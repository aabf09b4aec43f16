package database

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/secondhand-market/config"
)

func TestNewDatabaseConfig(t *testing.T) {
	logger := slog.Default()

	t.Run("BuildsURL", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Repositories.Postgres.Host = "db"
		cfg.Repositories.Postgres.Port = "5432"
		cfg.Repositories.Postgres.Username = "market"
		cfg.Repositories.Postgres.Password = "p@ss"
		cfg.Repositories.Postgres.DB = "marketplace"
		cfg.Repositories.Postgres.SSLMODE = "require"

		dbCfg, err := NewDatabaseConfig(cfg, logger)
		require.NoError(t, err)

		u, err := url.Parse(dbCfg.ConnectionURL)
		require.NoError(t, err)
		assert.Equal(t, "postgresql", u.Scheme)
		assert.Equal(t, "db:5432", u.Host)
		assert.Equal(t, "/marketplace", u.Path)
		assert.Equal(t, "require", u.Query().Get("sslmode"))
		pw, _ := u.User.Password()
		assert.Equal(t, "p@ss", pw)
	})

	t.Run("DefaultsSSLMode", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Repositories.Postgres.Host = "db"
		cfg.Repositories.Postgres.Port = "5432"

		dbCfg, err := NewDatabaseConfig(cfg, logger)
		require.NoError(t, err)
		u, err := url.Parse(dbCfg.ConnectionURL)
		require.NoError(t, err)
		assert.Equal(t, "disable", u.Query().Get("sslmode"))
	})

	t.Run("MissingHost", func(t *testing.T) {
		_, err := NewDatabaseConfig(&config.Config{}, logger)
		assert.Error(t, err)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestRollbackMigrations_RejectsNonPositiveSteps(t *testing.T) {
	err := RollbackMigrations("postgresql://localhost/db", 0, slog.Default())
	assert.Error(t, err)
}
