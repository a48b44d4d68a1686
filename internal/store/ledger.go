package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/altintasutku/library-management/internal/library"
	"github.com/altintasutku/library-management/internal/querysql"
)

// Ledger records borrowing episodes in LOANS.
//
// A book has at most one active loan (RETURN_DATE IS NULL) at any time. Loans
// are closed by stamping RETURN_DATE and are never deleted, so the table is
// the full borrowing history.
type Ledger struct {
	db    *sqlx.DB
	clock Clock
}

// ActiveLoanFor returns the open loan of a book. The bool is false when the
// book is available (or does not exist).
func (l *Ledger) ActiveLoanFor(ctx context.Context, bookID library.BookID) (library.Loan, bool, error) {
	return activeLoan(ctx, l.db, bookID)
}

func activeLoan(ctx context.Context, q sqlx.QueryerContext, bookID library.BookID) (library.Loan, bool, error) {
	query, args, err := querysql.SelectActiveLoan(bookID)
	if err != nil {
		return library.Loan{}, false, library.NewStorageError("active loan: build select", err)
	}

	var row loanRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.Loan{}, false, nil
		}
		return library.Loan{}, false, library.NewStorageError("active loan: select", err)
	}

	loan, err := row.toLoan()
	if err != nil {
		return library.Loan{}, false, library.NewStorageError("active loan: decode", err)
	}
	return loan, true, nil
}

// Borrow opens a loan of bookID for borrower.
//
// The existence check, the availability check and the insert run in one
// IMMEDIATE transaction. Of several concurrent borrows of the same book
// exactly one succeeds; the others fail with ALREADY_BORROWED.
//
// The borrower name is normalized and validated before the transaction
// starts.
//
// Errors:
//   - VALIDATION if the borrower name is blank or too long
//   - NOT_FOUND if the book does not exist
//   - ALREADY_BORROWED if the book has an active loan
func (l *Ledger) Borrow(ctx context.Context, bookID library.BookID, borrower string) (library.Loan, error) {
	borrower, err := library.ValidateBorrower(borrower)
	if err != nil {
		return library.Loan{}, err
	}

	var loan library.Loan

	err = withTx(ctx, l.db, "borrow", func(tx *sqlx.Tx) error {
		if _, ok, err := getBook(ctx, tx, bookID); err != nil {
			return err
		} else if !ok {
			return library.NewNotFoundError(bookID)
		}

		if current, ok, err := activeLoan(ctx, tx, bookID); err != nil {
			return err
		} else if ok {
			return library.NewAlreadyBorrowedError(bookID, current.BorrowerName)
		}

		now := l.clock.Now().UTC()
		query, args, err := querysql.InsertLoan(bookID, borrower, now)
		if err != nil {
			return library.NewStorageError("borrow: build insert", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return library.NewAlreadyBorrowedError(bookID, "")
			}
			return library.NewStorageError("borrow: insert loan", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return library.NewStorageError("borrow: read loan id", err)
		}

		loan = library.Loan{
			ID:           library.LoanID(id),
			BookID:       bookID,
			BorrowerName: borrower,
			BorrowDate:   now,
		}
		return nil
	})
	if err != nil {
		return library.Loan{}, err
	}

	return loan, nil
}

// Return closes the active loan of bookID and returns it with its
// RETURN_DATE set. The return date is never earlier than the borrow date.
//
// Errors:
//   - NOT_FOUND if the book does not exist
//   - NO_ACTIVE_LOAN if the book is not on loan
func (l *Ledger) Return(ctx context.Context, bookID library.BookID) (library.Loan, error) {
	var closed library.Loan

	err := withTx(ctx, l.db, "return", func(tx *sqlx.Tx) error {
		if _, ok, err := getBook(ctx, tx, bookID); err != nil {
			return err
		} else if !ok {
			return library.NewNotFoundError(bookID)
		}

		loan, ok, err := activeLoan(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !ok {
			return library.NewNoActiveLoanError(bookID)
		}

		now := l.clock.Now().UTC()
		if now.Before(loan.BorrowDate) {
			now = loan.BorrowDate
		}

		query, args, err := querysql.CloseActiveLoan(bookID, loan.ID, now)
		if err != nil {
			return library.NewStorageError("return: build update", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return library.NewStorageError("return: close loan", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return library.NewStorageError("return: rows affected", err)
		}
		if n != 1 {
			return library.NewNoActiveLoanError(bookID)
		}

		loan.ReturnDate = &now
		closed = loan
		return nil
	})
	if err != nil {
		return library.Loan{}, err
	}

	return closed, nil
}

// History returns every loan of a book, oldest first.
func (l *Ledger) History(ctx context.Context, bookID library.BookID) ([]library.Loan, error) {
	if _, ok, err := getBook(ctx, l.db, bookID); err != nil {
		return nil, err
	} else if !ok {
		return nil, library.NewNotFoundError(bookID)
	}

	query, args, err := querysql.SelectLoansForBook(bookID)
	if err != nil {
		return nil, library.NewStorageError("loan history: build select", err)
	}

	var rows []loanRow
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, library.NewStorageError("loan history: select", err)
	}

	loans := make([]library.Loan, 0, len(rows))
	for _, r := range rows {
		loan, err := r.toLoan()
		if err != nil {
			return nil, library.NewStorageError("loan history: decode", err)
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

// ActiveLoans returns every open loan with the borrowed book's title, in loan
// order.
func (l *Ledger) ActiveLoans(ctx context.Context) ([]library.ActiveLoan, error) {
	query, args, err := querysql.SelectActiveLoans()
	if err != nil {
		return nil, library.NewStorageError("active loans: build select", err)
	}

	var rows []activeLoanRow
	if err := l.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, library.NewStorageError("active loans: select", err)
	}

	loans := make([]library.ActiveLoan, 0, len(rows))
	for _, r := range rows {
		loan, err := r.toLoan()
		if err != nil {
			return nil, library.NewStorageError("active loans: decode", err)
		}
		loans = append(loans, library.ActiveLoan{Loan: loan, Title: r.Title})
	}
	return loans, nil
}

// ActiveCount returns the number of open loans of a book. It is 0 or 1 for
// any database written through this package.
func (l *Ledger) ActiveCount(ctx context.Context, bookID library.BookID) (int, error) {
	query, args, err := querysql.CountActiveLoans(bookID)
	if err != nil {
		return 0, library.NewStorageError("count active loans: build select", err)
	}

	var n int
	if err := l.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, library.NewStorageError("count active loans: select", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
