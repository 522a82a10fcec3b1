// Package helpers contains shared test fixtures.
package helpers

import (
	"path/filepath"
	"testing"

	"github.com/shank50/supportbotai/internal/repository"
)

// NewTestSQLiteStore returns an in-memory store closed at test cleanup.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestFileSQLiteStore returns a store backed by a database file in a
// temporary directory, so connections are pooled the way they are in
// production.
func NewTestFileSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "supportbot.db") + "?mode=rwc"
	s, err := repository.NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
