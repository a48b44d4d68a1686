package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altintasutku/library-management/internal/library"
	"github.com/altintasutku/library-management/internal/store"
	"github.com/altintasutku/library-management/internal/testutil"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func createTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(context.Background(), path, store.WithClock(testutil.NewStepClock(time.Time{}, time.Minute)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	opts = append([]Option{WithIDGenerator(testutil.NewSequenceIDGenerator("op"))}, opts...)
	e, err := NewFromStore(s, opts...)
	require.NoError(t, err)
	return e
}

var foundation = library.NewBook{Title: "Foundation", Author: "Isaac Asimov", Publisher: "Gnome Press", Year: 1951}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestNew_RejectsNilOptions(t *testing.T) {
	e := createTestEngine(t)

	_, err := New(e.catalog, e.ledger, WithLogger(nil))
	assert.Error(t, err)
	_, err = New(e.catalog, e.ledger, WithIDGenerator(nil))
	assert.Error(t, err)
}

func TestEngine_AddBook(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)

	book, err := e.AddBook(ctx, library.NewBook{Title: "  Foundation ", Author: "Isaac Asimov", Publisher: "Gnome Press", Year: 1951})
	require.NoError(t, err)
	assert.Equal(t, "Foundation", book.Title)

	found, err := e.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, found)
}

func TestEngine_AddBookValidation(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)

	tests := []struct {
		name string
		book library.NewBook
	}{
		{"blank title", library.NewBook{Title: " ", Author: "A", Publisher: "P", Year: 1}},
		{"negative year", library.NewBook{Title: "T", Author: "A", Publisher: "P", Year: -1}},
		{"title too long", library.NewBook{Title: strings.Repeat("t", 101), Author: "A", Publisher: "P"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.AddBook(ctx, tc.book)
			require.Error(t, err)
			assert.True(t, library.IsValidation(err))
		})
	}

	books, err := e.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books, "rejected input must not be written")
}

func TestEngine_FindBook(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)

	_, err := e.FindBook(ctx, 9999)
	assert.True(t, library.IsNotFound(err))

	_, err = e.FindBook(ctx, 0)
	assert.True(t, library.IsValidation(err))
}

func TestEngine_UpdateBook(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)
	book, err := e.AddBook(ctx, foundation)
	require.NoError(t, err)

	updated, err := e.UpdateBook(ctx, book.ID, library.BookPatch{Publisher: strPtr(" Doubleday "), Year: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, "Doubleday", updated.Publisher)
	assert.Equal(t, 0, updated.Year)
	assert.Equal(t, book.Title, updated.Title)

	same, err := e.UpdateBook(ctx, book.ID, library.BookPatch{Title: strPtr("   ")})
	require.NoError(t, err)
	assert.Equal(t, updated, same, "blank fields are no-ops")

	_, err = e.UpdateBook(ctx, 9999, library.BookPatch{Title: strPtr("X")})
	assert.True(t, library.IsNotFound(err))

	_, err = e.UpdateBook(ctx, book.ID, library.BookPatch{Year: intPtr(10000)})
	assert.True(t, library.IsValidation(err))
}

func TestEngine_FoundationScenario(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)

	book, err := e.AddBook(ctx, foundation)
	require.NoError(t, err)

	views, err := e.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Available())

	loan, err := e.Borrow(ctx, book.ID, " alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", loan.BorrowerName)

	views, err = e.ListBooks(ctx)
	require.NoError(t, err)
	require.NotNil(t, views[0].BorrowedBy)
	assert.Equal(t, "alice", *views[0].BorrowedBy)

	_, err = e.Borrow(ctx, book.ID, "bob")
	assert.True(t, library.IsAlreadyBorrowed(err))

	returned, err := e.Return(ctx, book.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnDate)
	assert.False(t, returned.ReturnDate.Before(returned.BorrowDate))

	_, err = e.Return(ctx, book.ID)
	assert.True(t, library.IsNoActiveLoan(err))

	views, err = e.ListBooks(ctx)
	require.NoError(t, err)
	assert.True(t, views[0].Available())

	history, err := e.LoanHistory(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, returned, history[0])
}

func TestEngine_BorrowValidation(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)
	book, err := e.AddBook(ctx, foundation)
	require.NoError(t, err)

	_, err = e.Borrow(ctx, book.ID, "   ")
	assert.True(t, library.IsValidation(err))

	_, err = e.Borrow(ctx, -1, "alice")
	assert.True(t, library.IsValidation(err))

	_, err = e.Borrow(ctx, 9999, "alice")
	assert.True(t, library.IsNotFound(err))

	_, err = e.Return(ctx, 9999)
	assert.True(t, library.IsNotFound(err))
}

func TestEngine_SearchBooks(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)

	for _, title := range []string{"Foundation", "Dune", "Foundation and Empire"} {
		_, err := e.AddBook(ctx, library.NewBook{Title: title, Author: "A", Publisher: "P", Year: 1})
		require.NoError(t, err)
	}

	got, err := e.SearchBooks(ctx, " found ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Foundation", got[0].Title)
	assert.Equal(t, "Foundation and Empire", got[1].Title)

	// Decomposed input matches composed storage after normalization.
	_, err = e.AddBook(ctx, library.NewBook{Title: "Caf\u00e9 Society", Author: "A", Publisher: "P", Year: 1})
	require.NoError(t, err)
	got, err = e.SearchBooks(ctx, "Cafe\u0301")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Caf\u00e9 Society", got[0].Title)
}

func TestEngine_ActiveLoans(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)

	empty, err := e.ActiveLoans(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	book, err := e.AddBook(ctx, foundation)
	require.NoError(t, err)
	_, err = e.Borrow(ctx, book.ID, "alice")
	require.NoError(t, err)

	loans, err := e.ActiveLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "Foundation", loans[0].Title)
	assert.Equal(t, "alice", loans[0].BorrowerName)
}

func TestEngine_ViewBook(t *testing.T) {
	ctx := context.Background()
	e := createTestEngine(t)
	book, err := e.AddBook(ctx, foundation)
	require.NoError(t, err)

	view, err := e.ViewBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, view.Available())

	_, err = e.ViewBook(ctx, 9999)
	assert.True(t, library.IsNotFound(err))
}

func TestEngine_LogsOperationsWithOpID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := createTestEngine(t, WithLogger(logger))

	ctx := ContextWithOpID(context.Background(), "trace-123")
	_, err := e.AddBook(ctx, foundation)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "op=add_book")
	assert.Contains(t, out, "op_id=trace-123")
	assert.Contains(t, out, "book_id=1")

	buf.Reset()
	_, err = e.FindBook(context.Background(), 42)
	require.Error(t, err)
	out = buf.String()
	assert.Contains(t, out, "operation rejected")
	assert.Contains(t, out, "kind=NOT_FOUND")
	assert.Contains(t, out, "op_id=op-")
}

type failingLedger struct{ Ledger }

func (failingLedger) ActiveLoans(context.Context) ([]library.ActiveLoan, error) {
	return nil, errors.New("disk on fire")
}

func TestEngine_UntypedErrorsBecomeStorage(t *testing.T) {
	base := createTestEngine(t)
	e, err := New(base.catalog, failingLedger{Ledger: base.ledger})
	require.NoError(t, err)

	_, err = e.ActiveLoans(context.Background())
	require.Error(t, err)
	assert.True(t, library.IsStorage(err))
	assert.Contains(t, err.Error(), "disk on fire")
}
