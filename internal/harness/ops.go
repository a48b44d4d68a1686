package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/altintasutku/library-management/internal/engine"
	"github.com/altintasutku/library-management/internal/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// operation runs one engine call from scenario arguments and returns the
// result value with its trace summary.
type operation func(ctx context.Context, eng *engine.Engine, args map[string]any) (any, string, error)

var operations = map[string]operation{
	"add_book":     opAddBook,
	"update_book":  opUpdateBook,
	"find_book":    opFindBook,
	"view_book":    opViewBook,
	"search_books": opSearchBooks,
	"list_books":   opListBooks,
	"borrow":       opBorrow,
	"return":       opReturn,
	"active_loans": opActiveLoans,
	"loan_history": opLoanHistory,
}

func isOperation(name string) bool {
	_, ok := operations[name]
	return ok
}

// ArgError reports a scenario argument of the wrong type or a missing one.
type ArgError struct {
	Key     string
	Message string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("arg %q: %s", e.Key, e.Message)
}

func opAddBook(ctx context.Context, eng *engine.Engine, args map[string]any) (any, string, error) {
	var b library.NewBook
	var err error
	if b.Title, _, err = stringArg(args, "title"); err != nil {
		return nil, "", err
	}
	if b.Author, _, err = stringArg(args, "author"); err != nil {
		return nil, "", err
	}
	if b.Publisher, _, err = stringArg(args, "publisher"); err != nil {
		return nil, "", err
	}
	year, _, err := intArg(args, "year")
	if err != nil {
		return nil, "", err
	}
	b.Year = int(year)

	book, err := eng.AddBook(ctx, b)
	if err != nil {
		return nil, "", err
	}
	return book, bookSummary(book), nil
}

func opUpdateBook(ctx context.Context, eng *engine.Engine, args map[string]any) (any, string, error) {
	id, err := bookIDArg(args)
	if err != nil {
		return nil, "", err
	}

	var patch library.BookPatch
	fields := []struct {
		key string
		dst **string
	}{
		{"title", &patch.Title},
		{"author", &patch.Author},
		{"publisher", &patch.Publisher},
	}
	for _, f := range fields {
		s, ok, err := stringArg(args, f.key)
		if err != nil {
			return nil, "", err
		}
		if ok {
			*f.dst = &s
		}
	}
	year, ok, err := intArg(args, "year")
	if err != nil {
		return nil, "", err
	}
	if ok {
		y := int(year)
		patch.Year = &y
	}

	book, err := eng.UpdateBook(ctx, id, patch)
	if err != nil {
		return nil, "", err
	}
	return book, bookSummary(book), nil
}

func opFindBook(ctx context.Context, eng *engine.Engine, args map[string]any) (any, string, error) {
	id, err := bookIDArg(args)
	if err != nil {
		return nil, "", err
	}
	book, err := eng.FindBook(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return book, bookSummary(book), nil
}

func opViewBook(ctx context.Context, eng *engine.Engine, args map[string]any) (any, string, error) {
	id, err := bookIDArg(args)
	if err != nil {
		return nil, "", err
	}
	view, err := eng.ViewBook(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return view, viewSummary(view), nil
}

func opSearchBooks(ctx context.Context, eng *engine.Engine, args map[string]any) (any, string, error) {
	pattern, _, err := stringArg(args, "pattern")
	if err != nil {
		return nil, "", err
	}
	views, err := eng.SearchBooks(ctx, pattern)
	if err != nil {
		return nil, "", err
	}
	return views, viewsSummary(views), nil
}

func opListBooks(ctx context.Context, eng *engine.Engine, _ map[string]any) (any, string, error) {
	views, err := eng.ListBooks(ctx)
	if err != nil {
		return nil, "", err
	}
	return views, viewsSummary(views), nil
}

func opBorrow(ctx context.Context, eng *engine.Engine, args map[string]any) (any, string, error) {
	id, err := bookIDArg(args)
	if err != nil {
		return nil, "", err
	}
	borrower, _, err := stringArg(args, "borrower")
	if err != nil {
		return nil, "", err
	}
	loan, err := eng.Borrow(ctx, id, borrower)
	if err != nil {
		return nil, "", err
	}
	return loan, loanSummary(loan), nil
}

func opReturn(ctx context.Context, eng *engine.Engine, args map[string]any) (any, string, error) {
	id, err := bookIDArg(args)
	if err != nil {
		return nil, "", err
	}
	loan, err := eng.Return(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return loan, loanSummary(loan), nil
}

func opActiveLoans(ctx context.Context, eng *engine.Engine, _ map[string]any) (any, string, error) {
	loans, err := eng.ActiveLoans(ctx)
	if err != nil {
		return nil, "", err
	}
	ids := make([]library.LoanID, 0, len(loans))
	for _, l := range loans {
		ids = append(ids, l.ID)
	}
	return loans, fmt.Sprintf("loans=%v", ids), nil
}

func opLoanHistory(ctx context.Context, eng *engine.Engine, args map[string]any) (any, string, error) {
	id, err := bookIDArg(args)
	if err != nil {
		return nil, "", err
	}
	loans, err := eng.LoanHistory(ctx, id)
	if err != nil {
		return nil, "", err
	}
	ids := make([]library.LoanID, 0, len(loans))
	for _, l := range loans {
		ids = append(ids, l.ID)
	}
	return loans, fmt.Sprintf("loans=%v", ids), nil
}

func bookIDArg(args map[string]any) (library.BookID, error) {
	id, ok, err := intArg(args, "id")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &ArgError{Key: "id", Message: "is required"}
	}
	return library.BookID(id), nil
}

func stringArg(args map[string]any, key string) (string, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, &ArgError{Key: key, Message: fmt.Sprintf("must be a string, got %T", v)}
	}
	return s, true, nil
}

func intArg(args map[string]any, key string) (int64, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true, nil
		}
	}
	return 0, false, &ArgError{Key: key, Message: fmt.Sprintf("must be an integer, got %v", v)}
}

// invocationSummary renders an operation with its arguments in key order.
func invocationSummary(action string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{action}
	for _, k := range keys {
		parts = append(parts, k+"="+formatArg(args[k]))
	}
	return strings.Join(parts, " ")
}

func formatArg(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

func bookSummary(b library.Book) string {
	return fmt.Sprintf("book=%d title=%q author=%q publisher=%q year=%d", b.ID, b.Title, b.Author, b.Publisher, b.Year)
}

func viewSummary(v library.BookView) string {
	borrower := "-"
	if v.BorrowedBy != nil {
		borrower = fmt.Sprintf("%q", *v.BorrowedBy)
	}
	return bookSummary(v.Book) + " borrowed_by=" + borrower
}

func viewsSummary(views []library.BookView) string {
	ids := make([]library.BookID, 0, len(views))
	borrowed := make([]library.BookID, 0)
	for _, v := range views {
		ids = append(ids, v.ID)
		if !v.Available() {
			borrowed = append(borrowed, v.ID)
		}
	}
	return fmt.Sprintf("books=%v borrowed=%v", ids, borrowed)
}

func loanSummary(l library.Loan) string {
	returned := "-"
	if l.ReturnDate != nil {
		returned = formatTime(*l.ReturnDate)
	}
	return fmt.Sprintf("loan=%d book=%d borrower=%q borrowed=%s returned=%s",
		l.ID, l.BookID, l.BorrowerName, formatTime(l.BorrowDate), returned)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// resultValue converts an operation result to its JSON form for expect
// matching. Slices become {count, items}.
func resultValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice {
		return map[string]any{"count": rv.Len(), "items": decoded}, nil
	}
	return decoded, nil
}
