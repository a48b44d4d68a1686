package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altintasutku/library-management/internal/library"
)

const twoBooks = `
books: [
	{title: "Foundation", author: "Isaac Asimov", publisher: "Gnome Press", year: 1951},
	{title: "Dune", author: "Frank Herbert", publisher: "Chilton", year: 0},
]
`

func TestParse_Valid(t *testing.T) {
	entries, err := Parse("books.cue", []byte(twoBooks))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, library.NewBook{Title: "Foundation", Author: "Isaac Asimov", Publisher: "Gnome Press", Year: 1951}, entries[0].Book)
	assert.Equal(t, "Dune", entries[1].Book.Title)
	assert.Equal(t, 0, entries[1].Book.Year)
}

func TestParse_EmptyList(t *testing.T) {
	entries, err := Parse("books.cue", []byte(`books: []`))
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"missing books", `shelf: []`, ErrCodeNoBooks},
		{"year out of range", `books: [{title: "T", author: "A", publisher: "P", year: 10000}]`, ErrCodeSchema},
		{"negative year", `books: [{title: "T", author: "A", publisher: "P", year: -1}]`, ErrCodeSchema},
		{"year is a string", `books: [{title: "T", author: "A", publisher: "P", year: "1951"}]`, ErrCodeSchema},
		{"missing author", `books: [{title: "T", publisher: "P", year: 1}]`, ErrCodeSchema},
		{"empty title", `books: [{title: "", author: "A", publisher: "P", year: 1}]`, ErrCodeSchema},
		{"unknown field", `books: [{title: "T", author: "A", publisher: "P", year: 1, isbn: "x"}]`, ErrCodeSchema},
		{"syntax error", `books: [{title: "T"`, ErrCodeBuildFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("books.cue", []byte(tc.src))
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr), "expected *LoadError, got %T", err)
			assert.Equal(t, tc.code, loadErr.Code)
		})
	}
}

func TestLoad_FileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.cue")
	require.NoError(t, os.WriteFile(path, []byte("package catalog\n"+twoBooks), 0o644))

	fromFile, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, fromFile, 2)

	fromDir, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, fromDir, 2)
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

type recordingAdder struct {
	added []library.NewBook
	fail  map[string]error
}

func (r *recordingAdder) AddBook(_ context.Context, b library.NewBook) (library.Book, error) {
	if err, ok := r.fail[b.Title]; ok {
		return library.Book{}, err
	}
	r.added = append(r.added, b)
	return library.Book{ID: library.BookID(len(r.added)), Title: b.Title}, nil
}

func TestApply_Modes(t *testing.T) {
	entries := []Entry{
		{Book: library.NewBook{Title: "A"}},
		{Book: library.NewBook{Title: "B"}},
		{Book: library.NewBook{Title: "C"}},
	}
	reject := map[string]error{"B": library.NewValidationError(library.FieldAuthor, "author must not be empty")}

	t.Run("fail fast", func(t *testing.T) {
		adder := &recordingAdder{fail: reject}
		report, err := Apply(context.Background(), adder, entries, ModeFailFast)
		require.Error(t, err)
		assert.Len(t, report.Added, 1)
		require.Len(t, report.Rejected, 1)
		assert.Equal(t, 1, report.Rejected[0].Index)
	})

	t.Run("collect all", func(t *testing.T) {
		adder := &recordingAdder{fail: reject}
		report, err := Apply(context.Background(), adder, entries, ModeCollectAll)
		require.NoError(t, err)
		assert.Len(t, report.Added, 2)
		require.Len(t, report.Rejected, 1)
		assert.True(t, library.IsValidation(report.Rejected[0].Err))
	})

	t.Run("storage errors always stop", func(t *testing.T) {
		adder := &recordingAdder{fail: map[string]error{"A": library.NewStorageError("add book: insert", errors.New("disk full"))}}
		report, err := Apply(context.Background(), adder, entries, ModeCollectAll)
		require.Error(t, err)
		assert.True(t, library.IsStorage(err))
		assert.Empty(t, report.Added)
	})
}
