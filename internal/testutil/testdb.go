// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"libraryledger/internal/config"
	"libraryledger/internal/database"
)

// Today is the fixed "current date" used by service tests.
var Today = time.Date(2026, 1, 20, 10, 30, 0, 0, time.UTC)

// Clock always returns Today.
func Clock() time.Time { return Today }

// OpenDB returns a migrated SQLite database stored in t.TempDir().
//
// A single connection serialises transactions, which stands in for the row
// locks SQLite does not have.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_foreign_keys=1&_busy_timeout=5000"
	db, err := database.Open(&config.Config{
		DatabaseURL:     dsn,
		DBDriver:        config.DriverSQLite,
		DBLogLevel:      "silent",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Date builds a UTC calendar date.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date returning a pointer, for optional fields.
func DatePtr(y int, m time.Month, d int) *time.Time {
	t := Date(y, m, d)
	return &t
}
