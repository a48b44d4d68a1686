package store

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/altintasutku/library-management/internal/library"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - BOOKS, LOANS, active-loan unique index, non-empty text and year CHECKs
const currentSchemaVersion = 1

// Clock supplies loan timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Store provides durable storage for the catalog and the loan ledger.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db    *sqlx.DB
	clock Clock
}

// Option configures a Store.
type Option func(*Store) error

// WithClock sets the clock used for BORROW_DATE and RETURN_DATE.
func WithClock(c Clock) Option {
	return func(s *Store) error {
		if c == nil {
			return fmt.Errorf("clock must not be nil")
		}
		s.clock = c
		return nil
	}
}

// Open creates or opens a SQLite database at the given path and ensures the
// schema exists.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//   - IMMEDIATE transactions, so concurrent borrows serialize on BEGIN
//
// Connection failures are STORAGE errors; schema failures are SCHEMA errors.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{clock: SystemClock{}}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, library.NewStorageError("open: apply option", err)
		}
	}

	db, err := sqlx.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, library.NewStorageError("open: open database", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, library.NewStorageError("open: connect to database", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, library.NewStorageError("open: apply pragmas", err)
	}

	s.db = db
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// dsn builds the go-sqlite3 connection string. The _txlock, _foreign_keys and
// _busy_timeout parameters apply to every connection the pool opens. The path
// is percent-encoded so '?', '#' and '%' in a file name reach SQLite intact.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + params.Encode()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle for diagnostics and tests.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Catalog returns the book catalog backed by this store.
func (s *Store) Catalog() *Catalog {
	return &Catalog{db: s.db}
}

// Ledger returns the loan ledger backed by this store.
func (s *Store) Ledger() *Ledger {
	return &Ledger{db: s.db, clock: s.clock}
}

func applyPragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return nil
}

// EnsureSchema creates BOOKS, LOANS and their indexes if they are missing.
// Existing relations and rows are left untouched, so it is safe to run on
// every start. A database stamped by a newer build is rejected.
func (s *Store) EnsureSchema(ctx context.Context) error {
	var version int
	if err := s.db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return library.NewSchemaError("ensure schema: read user_version", err)
	}
	if version > currentSchemaVersion {
		return library.NewSchemaError("ensure schema",
			fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion))
	}

	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return library.NewSchemaError("ensure schema: create relations", err)
	}

	if version < currentSchemaVersion {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return library.NewSchemaError("ensure schema: set user_version", err)
		}
	}

	return nil
}

// withTx runs fn inside a transaction. The transaction is rolled back unless
// fn returns nil and the commit succeeds.
func withTx(ctx context.Context, db *sqlx.DB, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return library.NewStorageError(op+": begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return library.NewStorageError(op+": commit", err)
	}
	return nil
}
