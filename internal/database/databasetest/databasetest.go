// Package databasetest provides throwaway SQLite databases for tests.
package databasetest

import (
	"fmt"
	"testing"

	"cms/internal/config"
	"cms/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New opens a private in-memory SQLite database with the schema migrated.
// A single connection is used so the memory database lives as long as the pool.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Driver:  "sqlite",
		DSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString()),
		MaxIdle: 1,
		MaxOpen: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
