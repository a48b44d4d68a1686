package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/altintasutku/library-management/internal/library"
	"github.com/altintasutku/library-management/internal/testutil"
)

// createTestStore opens a fresh database file with a stepping clock.
func createTestStore(t *testing.T) (*Store, *testutil.StepClock) {
	t.Helper()
	clock := testutil.NewStepClock(time.Time{}, time.Minute)
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path, WithClock(clock))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// addTestBook inserts a book and fails the test on error.
func addTestBook(t *testing.T, s *Store, title string) library.Book {
	t.Helper()
	b, err := s.Catalog().Add(context.Background(), library.NewBook{
		Title:     title,
		Author:    "Author of " + title,
		Publisher: "Publisher",
		Year:      1951,
	})
	if err != nil {
		t.Fatalf("Add(%q) failed: %v", title, err)
	}
	return b
}

func verifyPragma(t *testing.T, db *sqlx.DB, name, want string) {
	t.Helper()
	var got string
	if err := db.Get(&got, "PRAGMA "+name); err != nil {
		t.Fatalf("PRAGMA %s failed: %v", name, err)
	}
	if got != want {
		t.Errorf("PRAGMA %s = %q, want %q", name, got, want)
	}
}

func getTableColumns(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var indexes []string
	if err := db.Select(&indexes, "SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=? ORDER BY name", table); err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
