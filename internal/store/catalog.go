package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/altintasutku/library-management/internal/library"
	"github.com/altintasutku/library-management/internal/querysql"
)

// Catalog stores and retrieves book records.
//
// Book text is normalized and validated before it reaches the database, so
// every writer gets the same rules whether or not it goes through the engine.
type Catalog struct {
	db *sqlx.DB
}

// Add normalizes and validates b, inserts it and returns it with its
// assigned id.
//
// Errors:
//   - VALIDATION if a text field is blank or too long, or the year is out of range
func (c *Catalog) Add(ctx context.Context, b library.NewBook) (library.Book, error) {
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return library.Book{}, err
	}

	query, args, err := querysql.InsertBook(b)
	if err != nil {
		return library.Book{}, library.NewStorageError("add book: build insert", err)
	}

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return library.Book{}, library.NewStorageError("add book: insert", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return library.Book{}, library.NewStorageError("add book: read id", err)
	}

	return library.Book{
		ID:        library.BookID(id),
		Title:     b.Title,
		Author:    b.Author,
		Publisher: b.Publisher,
		Year:      b.Year,
	}, nil
}

// Get returns the book with the given id. The bool is false if no such book
// exists; absence is not an error.
func (c *Catalog) Get(ctx context.Context, id library.BookID) (library.Book, bool, error) {
	return getBook(ctx, c.db, id)
}

func getBook(ctx context.Context, q sqlx.QueryerContext, id library.BookID) (library.Book, bool, error) {
	query, args, err := querysql.SelectBookByID(id)
	if err != nil {
		return library.Book{}, false, library.NewStorageError("get book: build select", err)
	}

	var row bookRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.Book{}, false, nil
		}
		return library.Book{}, false, library.NewStorageError("get book: select", err)
	}

	return row.toBook(), true, nil
}

// View returns a book joined with its active borrower, if any.
func (c *Catalog) View(ctx context.Context, id library.BookID) (library.BookView, bool, error) {
	query, args, err := querysql.SelectBookViewByID(id)
	if err != nil {
		return library.BookView{}, false, library.NewStorageError("view book: build select", err)
	}

	var row bookViewRow
	if err := c.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.BookView{}, false, nil
		}
		return library.BookView{}, false, library.NewStorageError("view book: select", err)
	}

	return row.toView(), true, nil
}

// UpdatePartial applies a patch to an existing book and returns the stored
// result. The patch is normalized and validated first. Existence is checked
// in the same transaction as the update, so a missing id yields NOT_FOUND
// rather than a silent no-op. An empty patch issues no UPDATE and returns
// the book as stored.
func (c *Catalog) UpdatePartial(ctx context.Context, id library.BookID, patch library.BookPatch) (library.Book, error) {
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return library.Book{}, err
	}

	var updated library.Book

	err := withTx(ctx, c.db, "update book", func(tx *sqlx.Tx) error {
		current, ok, err := getBook(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return library.NewNotFoundError(id)
		}
		if patch.IsEmpty() {
			updated = current
			return nil
		}

		query, args, err := querysql.UpdateBookPartial(id, patch)
		if err != nil {
			return library.NewStorageError("update book: build update", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return library.NewStorageError("update book: update", err)
		}

		book, ok, err := getBook(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return library.NewNotFoundError(id)
		}
		updated = book
		return nil
	})
	if err != nil {
		return library.Book{}, err
	}

	return updated, nil
}

// SearchByTitle returns books whose title contains pattern, with their loan
// status, ordered by id. Matching is case-insensitive for ASCII letters.
// An empty pattern matches every book.
func (c *Catalog) SearchByTitle(ctx context.Context, pattern string) ([]library.BookView, error) {
	query, args, err := querysql.SelectBooksByTitle(pattern)
	if err != nil {
		return nil, library.NewStorageError("search books: build select", err)
	}
	return c.selectViews(ctx, "search books", query, args)
}

// ListWithLoanStatus returns every book with its loan status, ordered by id.
func (c *Catalog) ListWithLoanStatus(ctx context.Context) ([]library.BookView, error) {
	query, args, err := querysql.SelectBooksWithLoanStatus()
	if err != nil {
		return nil, library.NewStorageError("list books: build select", err)
	}
	return c.selectViews(ctx, "list books", query, args)
}

func (c *Catalog) selectViews(ctx context.Context, op, query string, args []any) ([]library.BookView, error) {
	var rows []bookViewRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, library.NewStorageError(op+": select", err)
	}
	return toViews(rows), nil
}
