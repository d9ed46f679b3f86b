// Package testutil builds migrated SQLite databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/migrations"
	"github.com/garyjia/shared-staff/pkg/database"
)

// NewDB opens a file-backed database in t.TempDir with the schema applied.
// A file (not :memory:) lets concurrent connections share the same data.
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "shared-staff.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 8,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations(migrations.FS))
	return db
}
