package database

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// TestingT is an interface for testing compatibility.
type TestingT interface {
	Logf(format string, args ...any)
	FailNow()
	Cleanup(func())
	TempDir() string
}

// SetupTestDatabase creates a migrated SQLite database in an isolated
// temporary directory and closes it when the test finishes.
func SetupTestDatabase(t TestingT) *sql.DB {
	var path = filepath.Join(t.TempDir(), fmt.Sprintf("test_%s.db", uuid.New().String()[0:8]))

	conn, err := OpenSQLite(path)
	if err != nil {
		t.Logf("failed to open sqlite database %s: %v", path, err)
		t.FailNow()
	}

	if err := Migrate(conn, SQLite); err != nil {
		t.Logf("failed to migrate test database: %v", err)
		t.FailNow()
	}

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}
