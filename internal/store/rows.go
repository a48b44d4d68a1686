package store

import (
	"database/sql"
	"fmt"

	"github.com/altintasutku/library-management/internal/library"
	"github.com/altintasutku/library-management/internal/querysql"
)

type bookRow struct {
	ID        int64  `db:"ID"`
	Title     string `db:"TITLE"`
	Author    string `db:"AUTHOR"`
	Publisher string `db:"PUBLISHER"`
	Year      int    `db:"YEAR"`
}

func (r bookRow) toBook() library.Book {
	return library.Book{
		ID:        library.BookID(r.ID),
		Title:     r.Title,
		Author:    r.Author,
		Publisher: r.Publisher,
		Year:      r.Year,
	}
}

type bookViewRow struct {
	bookRow
	BorrowedBy sql.NullString `db:"BORROWED_BY"`
}

func (r bookViewRow) toView() library.BookView {
	v := library.BookView{Book: r.toBook()}
	if r.BorrowedBy.Valid {
		name := r.BorrowedBy.String
		v.BorrowedBy = &name
	}
	return v
}

func toViews(rows []bookViewRow) []library.BookView {
	views := make([]library.BookView, 0, len(rows))
	for _, r := range rows {
		views = append(views, r.toView())
	}
	return views
}

type loanRow struct {
	ID           int64          `db:"ID"`
	BookID       int64          `db:"BOOK_ID"`
	BorrowerName string         `db:"BORROWER_NAME"`
	BorrowDate   string         `db:"BORROW_DATE"`
	ReturnDate   sql.NullString `db:"RETURN_DATE"`
}

func (r loanRow) toLoan() (library.Loan, error) {
	borrowed, err := querysql.ParseTime(r.BorrowDate)
	if err != nil {
		return library.Loan{}, fmt.Errorf("parse borrow date of loan %d: %w", r.ID, err)
	}

	loan := library.Loan{
		ID:           library.LoanID(r.ID),
		BookID:       library.BookID(r.BookID),
		BorrowerName: r.BorrowerName,
		BorrowDate:   borrowed,
	}

	if r.ReturnDate.Valid {
		returned, err := querysql.ParseTime(r.ReturnDate.String)
		if err != nil {
			return library.Loan{}, fmt.Errorf("parse return date of loan %d: %w", r.ID, err)
		}
		loan.ReturnDate = &returned
	}

	return loan, nil
}

type activeLoanRow struct {
	loanRow
	Title string `db:"TITLE"`
}
