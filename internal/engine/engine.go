package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/altintasutku/library-management/internal/library"
	"github.com/altintasutku/library-management/internal/store"
)

// IDGenerator generates unique operation ids for log correlation.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// Catalog is the book storage the engine needs. Implemented by *store.Catalog.
type Catalog interface {
	Add(ctx context.Context, b library.NewBook) (library.Book, error)
	Get(ctx context.Context, id library.BookID) (library.Book, bool, error)
	View(ctx context.Context, id library.BookID) (library.BookView, bool, error)
	UpdatePartial(ctx context.Context, id library.BookID, patch library.BookPatch) (library.Book, error)
	SearchByTitle(ctx context.Context, pattern string) ([]library.BookView, error)
	ListWithLoanStatus(ctx context.Context) ([]library.BookView, error)
}

// Ledger is the loan storage the engine needs. Implemented by *store.Ledger.
type Ledger interface {
	Borrow(ctx context.Context, bookID library.BookID, borrower string) (library.Loan, error)
	Return(ctx context.Context, bookID library.BookID) (library.Loan, error)
	History(ctx context.Context, bookID library.BookID) ([]library.Loan, error)
	ActiveLoans(ctx context.Context) ([]library.ActiveLoan, error)
}

// Engine is the catalog and loan facade.
//
// INVARIANTS:
//   - every returned error is a *library.Error
//   - input is normalized (trimmed, NFC) before it reaches storage
//   - a book never has more than one active loan (enforced by Ledger)
type Engine struct {
	catalog Catalog
	ledger  Ledger
	logger  *slog.Logger
	ids     IDGenerator
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets the logger. Operations log at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) error {
		if l == nil {
			return fmt.Errorf("logger must not be nil")
		}
		e.logger = l
		return nil
	}
}

// WithIDGenerator sets the generator for operation ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) error {
		if g == nil {
			return fmt.Errorf("id generator must not be nil")
		}
		e.ids = g
		return nil
	}
}

// New creates an Engine over the given catalog and ledger.
//
// Without WithLogger the engine is silent; without WithIDGenerator it uses
// UUIDv7Generator.
func New(catalog Catalog, ledger Ledger, opts ...Option) (*Engine, error) {
	if catalog == nil || ledger == nil {
		return nil, fmt.Errorf("engine: catalog and ledger are required")
	}

	e := &Engine{
		catalog: catalog,
		ledger:  ledger,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:     UUIDv7Generator{},
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}

	return e, nil
}

// NewFromStore creates an Engine backed by an open store.
func NewFromStore(s *store.Store, opts ...Option) (*Engine, error) {
	return New(s.Catalog(), s.Ledger(), opts...)
}

// NextOpID returns a fresh operation id from the engine's generator.
func (e *Engine) NextOpID() string {
	return e.ids.Generate()
}

func (e *Engine) opID(ctx context.Context) string {
	if id := OpIDFrom(ctx); id != "" {
		return id
	}
	return e.ids.Generate()
}

// finish logs the outcome of an operation and normalizes err into the
// library taxonomy.
func (e *Engine) finish(ctx context.Context, op, opID string, bookID library.BookID, err error) error {
	attrs := []any{"op", op, "op_id", opID}
	if bookID != 0 {
		attrs = append(attrs, "book_id", int64(bookID))
	}

	if err != nil {
		err = library.AsStorage(op, err)
		attrs = append(attrs, "kind", string(library.KindOf(err)), "error", err)
		e.logger.DebugContext(ctx, "operation rejected", attrs...)
		return err
	}

	e.logger.DebugContext(ctx, "operation completed", attrs...)
	return nil
}

// AddBook inserts b. The returned book carries its new id.
//
// Errors: VALIDATION for blank or over-long text or an out-of-range year.
func (e *Engine) AddBook(ctx context.Context, b library.NewBook) (library.Book, error) {
	opID := e.opID(ctx)

	book, err := e.catalog.Add(ctx, b)
	if err != nil {
		return library.Book{}, e.finish(ctx, "add_book", opID, 0, err)
	}
	return book, e.finish(ctx, "add_book", opID, book.ID, nil)
}

// UpdateBook applies patch to the book with the given id and returns the
// stored result. Absent or blank fields keep their stored values.
func (e *Engine) UpdateBook(ctx context.Context, id library.BookID, patch library.BookPatch) (library.Book, error) {
	opID := e.opID(ctx)

	if err := library.ValidateBookID(id); err != nil {
		return library.Book{}, e.finish(ctx, "update_book", opID, id, err)
	}

	book, err := e.catalog.UpdatePartial(ctx, id, patch)
	if err != nil {
		return library.Book{}, e.finish(ctx, "update_book", opID, id, err)
	}
	return book, e.finish(ctx, "update_book", opID, id, nil)
}

// FindBook returns the book with the given id, or a NOT_FOUND error.
func (e *Engine) FindBook(ctx context.Context, id library.BookID) (library.Book, error) {
	opID := e.opID(ctx)

	if err := library.ValidateBookID(id); err != nil {
		return library.Book{}, e.finish(ctx, "find_book", opID, id, err)
	}

	book, ok, err := e.catalog.Get(ctx, id)
	if err == nil && !ok {
		err = library.NewNotFoundError(id)
	}
	if err != nil {
		return library.Book{}, e.finish(ctx, "find_book", opID, id, err)
	}
	return book, e.finish(ctx, "find_book", opID, id, nil)
}

// ViewBook returns the book with the given id together with its active
// borrower, or a NOT_FOUND error.
func (e *Engine) ViewBook(ctx context.Context, id library.BookID) (library.BookView, error) {
	opID := e.opID(ctx)

	if err := library.ValidateBookID(id); err != nil {
		return library.BookView{}, e.finish(ctx, "view_book", opID, id, err)
	}

	view, ok, err := e.catalog.View(ctx, id)
	if err == nil && !ok {
		err = library.NewNotFoundError(id)
	}
	if err != nil {
		return library.BookView{}, e.finish(ctx, "view_book", opID, id, err)
	}
	return view, e.finish(ctx, "view_book", opID, id, nil)
}

// SearchBooks returns every book whose title contains pattern, ordered by
// id. ASCII letters match case-insensitively; an empty pattern matches all.
func (e *Engine) SearchBooks(ctx context.Context, pattern string) ([]library.BookView, error) {
	opID := e.opID(ctx)

	views, err := e.catalog.SearchByTitle(ctx, library.NormalizeText(pattern))
	if err != nil {
		return nil, e.finish(ctx, "search_books", opID, 0, err)
	}
	return views, e.finish(ctx, "search_books", opID, 0, nil)
}

// ListBooks returns every book with its loan status, ordered by id.
func (e *Engine) ListBooks(ctx context.Context) ([]library.BookView, error) {
	opID := e.opID(ctx)

	views, err := e.catalog.ListWithLoanStatus(ctx)
	if err != nil {
		return nil, e.finish(ctx, "list_books", opID, 0, err)
	}
	return views, e.finish(ctx, "list_books", opID, 0, nil)
}

// Borrow lends the book to borrower.
//
// Errors: VALIDATION for a bad id or blank borrower, NOT_FOUND for an unknown
// book, ALREADY_BORROWED if the book is on loan.
func (e *Engine) Borrow(ctx context.Context, bookID library.BookID, borrower string) (library.Loan, error) {
	opID := e.opID(ctx)

	if err := library.ValidateBookID(bookID); err != nil {
		return library.Loan{}, e.finish(ctx, "borrow", opID, bookID, err)
	}

	loan, err := e.ledger.Borrow(ctx, bookID, borrower)
	if err != nil {
		return library.Loan{}, e.finish(ctx, "borrow", opID, bookID, err)
	}
	return loan, e.finish(ctx, "borrow", opID, bookID, nil)
}

// Return closes the active loan of the book and returns the closed loan.
//
// Errors: VALIDATION for a bad id, NOT_FOUND for an unknown book,
// NO_ACTIVE_LOAN if the book is not on loan.
func (e *Engine) Return(ctx context.Context, bookID library.BookID) (library.Loan, error) {
	opID := e.opID(ctx)

	if err := library.ValidateBookID(bookID); err != nil {
		return library.Loan{}, e.finish(ctx, "return", opID, bookID, err)
	}

	loan, err := e.ledger.Return(ctx, bookID)
	if err != nil {
		return library.Loan{}, e.finish(ctx, "return", opID, bookID, err)
	}
	return loan, e.finish(ctx, "return", opID, bookID, nil)
}

// ActiveLoans returns every open loan with its book title, ordered by loan id.
func (e *Engine) ActiveLoans(ctx context.Context) ([]library.ActiveLoan, error) {
	opID := e.opID(ctx)

	loans, err := e.ledger.ActiveLoans(ctx)
	if err != nil {
		return nil, e.finish(ctx, "active_loans", opID, 0, err)
	}
	return loans, e.finish(ctx, "active_loans", opID, 0, nil)
}

// LoanHistory returns every loan of the book, oldest first.
func (e *Engine) LoanHistory(ctx context.Context, bookID library.BookID) ([]library.Loan, error) {
	opID := e.opID(ctx)

	if err := library.ValidateBookID(bookID); err != nil {
		return nil, e.finish(ctx, "loan_history", opID, bookID, err)
	}

	loans, err := e.ledger.History(ctx, bookID)
	if err != nil {
		return nil, e.finish(ctx, "loan_history", opID, bookID, err)
	}
	return loans, e.finish(ctx, "loan_history", opID, bookID, nil)
}
