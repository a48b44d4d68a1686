// Package querysql builds every statement the store executes.
//
// CRITICAL: All values are bound as ? parameters, never interpolated. The
// builders run goqu in prepared mode, so user text can only ever reach SQLite
// through the args slice.
//
// CRITICAL: Every SELECT has an ORDER BY on a primary key so results are
// deterministic.
package querysql

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // registers the sqlite3 dialect
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/altintasutku/library-management/internal/library"
)

// Relation and column names, as declared in schema.sql.
const (
	TableBooks = "BOOKS"
	TableLoans = "LOANS"

	ColID           = "ID"
	ColTitle        = "TITLE"
	ColAuthor       = "AUTHOR"
	ColPublisher    = "PUBLISHER"
	ColYear         = "YEAR"
	ColBookID       = "BOOK_ID"
	ColBorrowerName = "BORROWER_NAME"
	ColBorrowDate   = "BORROW_DATE"
	ColReturnDate   = "RETURN_DATE"

	// ColBorrowedBy is the alias of the joined active borrower.
	ColBorrowedBy = "BORROWED_BY"

	dialectSQLite = "sqlite3"
	aliasBook     = "b"
	aliasLoan     = "l"
	likeEscape    = `\`
)

// TimeLayout is the fixed-width UTC layout used for BORROW_DATE and
// RETURN_DATE. Fixed width keeps lexical order equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a value written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

func dialect() goqu.DialectWrapper {
	return goqu.Dialect(dialectSQLite)
}

// InsertBook builds the insert for a validated book.
func InsertBook(b library.NewBook) (string, []any, error) {
	return dialect().Insert(TableBooks).Prepared(true).
		Rows(goqu.Record{
			ColTitle:     b.Title,
			ColAuthor:    b.Author,
			ColPublisher: b.Publisher,
			ColYear:      b.Year,
		}).
		ToSQL()
}

// UpdateBookPartial builds a single fixed UPDATE whose "leave unchanged"
// decisions are evaluated by SQLite:
//
//	TITLE = COALESCE(NULLIF(?, ''), TITLE)
//	YEAR  = CASE WHEN ? THEN ? ELSE YEAR END
//
// Absent text fields are bound as "", an absent year as (false, 0). The SQL
// text is identical for every patch; only args differ.
func UpdateBookPartial(id library.BookID, p library.BookPatch) (string, []any, error) {
	yearSet, year := false, 0
	if p.Year != nil {
		yearSet, year = true, *p.Year
	}

	return dialect().Update(TableBooks).Prepared(true).
		Set(goqu.Record{
			ColTitle:     keepIfEmpty(ColTitle, p.Title),
			ColAuthor:    keepIfEmpty(ColAuthor, p.Author),
			ColPublisher: keepIfEmpty(ColPublisher, p.Publisher),
			ColYear:      goqu.L("CASE WHEN ? THEN ? ELSE ? END", yearSet, year, goqu.C(ColYear)),
		}).
		Where(goqu.C(ColID).Eq(int64(id))).
		ToSQL()
}

// keepIfEmpty renders COALESCE(NULLIF(?, ''), col).
func keepIfEmpty(col string, v *string) exp.SQLFunctionExpression {
	value := ""
	if v != nil {
		value = *v
	}
	return goqu.COALESCE(goqu.Func("NULLIF", value, ""), goqu.C(col))
}

// SelectBookByID builds the lookup of a single book row.
func SelectBookByID(id library.BookID) (string, []any, error) {
	return dialect().From(TableBooks).Prepared(true).
		Select(ColID, ColTitle, ColAuthor, ColPublisher, ColYear).
		Where(goqu.C(ColID).Eq(int64(id))).
		Order(goqu.C(ColID).Asc()).
		ToSQL()
}

// bookViews is the shared BOOKS LEFT JOIN active-LOANS projection.
func bookViews() *goqu.SelectDataset {
	b := func(col string) exp.IdentifierExpression { return goqu.T(aliasBook).Col(col) }
	l := func(col string) exp.IdentifierExpression { return goqu.T(aliasLoan).Col(col) }

	return dialect().From(goqu.T(TableBooks).As(aliasBook)).Prepared(true).
		LeftJoin(
			goqu.T(TableLoans).As(aliasLoan),
			goqu.On(l(ColBookID).Eq(b(ColID)), l(ColReturnDate).IsNull()),
		).
		Select(
			b(ColID).As(ColID),
			b(ColTitle).As(ColTitle),
			b(ColAuthor).As(ColAuthor),
			b(ColPublisher).As(ColPublisher),
			b(ColYear).As(ColYear),
			l(ColBorrowerName).As(ColBorrowedBy),
		).
		Order(b(ColID).Asc())
}

// SelectBookViewByID builds the detail view of one book with its borrower.
func SelectBookViewByID(id library.BookID) (string, []any, error) {
	return bookViews().
		Where(goqu.T(aliasBook).Col(ColID).Eq(int64(id))).
		ToSQL()
}

// SelectBooksByTitle builds a substring search on TITLE. SQLite LIKE is
// case-insensitive for ASCII. Wildcards in pattern are escaped so they match
// literally; an empty pattern matches every book.
func SelectBooksByTitle(pattern string) (string, []any, error) {
	like := "%" + EscapeLike(pattern) + "%"
	return bookViews().
		Where(goqu.L("? LIKE ? ESCAPE ?", goqu.T(aliasBook).Col(ColTitle), like, likeEscape)).
		ToSQL()
}

// SelectBooksWithLoanStatus builds the full catalog listing.
func SelectBooksWithLoanStatus() (string, []any, error) {
	return bookViews().ToSQL()
}

// EscapeLike escapes LIKE metacharacters with a backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

// InsertLoan builds the insert of a new active loan.
func InsertLoan(bookID library.BookID, borrower string, borrowedAt time.Time) (string, []any, error) {
	return dialect().Insert(TableLoans).Prepared(true).
		Rows(goqu.Record{
			ColBookID:       int64(bookID),
			ColBorrowerName: borrower,
			ColBorrowDate:   FormatTime(borrowedAt),
		}).
		ToSQL()
}

var loanColumns = []any{ColID, ColBookID, ColBorrowerName, ColBorrowDate, ColReturnDate}

// SelectActiveLoan builds the lookup of a book's open loan.
func SelectActiveLoan(bookID library.BookID) (string, []any, error) {
	return dialect().From(TableLoans).Prepared(true).
		Select(loanColumns...).
		Where(goqu.C(ColBookID).Eq(int64(bookID)), goqu.C(ColReturnDate).IsNull()).
		Order(goqu.C(ColID).Asc()).
		ToSQL()
}

// CloseActiveLoan builds the update that stamps RETURN_DATE on exactly one
// open loan of a book. It matches nothing if the loan was closed meanwhile.
func CloseActiveLoan(bookID library.BookID, loanID library.LoanID, returnedAt time.Time) (string, []any, error) {
	return dialect().Update(TableLoans).Prepared(true).
		Set(goqu.Record{ColReturnDate: FormatTime(returnedAt)}).
		Where(
			goqu.C(ColID).Eq(int64(loanID)),
			goqu.C(ColBookID).Eq(int64(bookID)),
			goqu.C(ColReturnDate).IsNull(),
		).
		ToSQL()
}

// SelectLoansForBook builds the full loan history of a book, oldest first.
func SelectLoansForBook(bookID library.BookID) (string, []any, error) {
	return dialect().From(TableLoans).Prepared(true).
		Select(loanColumns...).
		Where(goqu.C(ColBookID).Eq(int64(bookID))).
		Order(goqu.C(ColID).Asc()).
		ToSQL()
}

// SelectActiveLoans builds the list of every open loan with its book title.
func SelectActiveLoans() (string, []any, error) {
	b := func(col string) exp.IdentifierExpression { return goqu.T(aliasBook).Col(col) }
	l := func(col string) exp.IdentifierExpression { return goqu.T(aliasLoan).Col(col) }

	return dialect().From(goqu.T(TableLoans).As(aliasLoan)).Prepared(true).
		InnerJoin(goqu.T(TableBooks).As(aliasBook), goqu.On(b(ColID).Eq(l(ColBookID)))).
		Select(
			l(ColID).As(ColID),
			l(ColBookID).As(ColBookID),
			l(ColBorrowerName).As(ColBorrowerName),
			l(ColBorrowDate).As(ColBorrowDate),
			l(ColReturnDate).As(ColReturnDate),
			b(ColTitle).As(ColTitle),
		).
		Where(l(ColReturnDate).IsNull()).
		Order(l(ColID).Asc()).
		ToSQL()
}

// CountActiveLoans builds a count of open loans for a book. Used by invariant
// checks.
func CountActiveLoans(bookID library.BookID) (string, []any, error) {
	return dialect().From(TableLoans).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C(ColBookID).Eq(int64(bookID)), goqu.C(ColReturnDate).IsNull()).
		ToSQL()
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SelectMatching builds a SELECT * over table restricted by column = value
// for every entry of where. A nil value matches NULL. Table and column
// names must be plain identifiers since they cannot be bound.
func SelectMatching(table string, where map[string]any) (string, []any, error) {
	if !identifier.MatchString(table) {
		return "", nil, fmt.Errorf("invalid table name %q: must match pattern %s", table, identifier)
	}

	cond := goqu.Ex{}
	for col, v := range where {
		if !identifier.MatchString(col) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", col, identifier)
		}
		cond[col] = v
	}

	ds := dialect().From(table).Prepared(true).Order(goqu.C(ColID).Asc())
	if len(cond) > 0 {
		ds = ds.Where(cond)
	}
	return ds.ToSQL()
}
