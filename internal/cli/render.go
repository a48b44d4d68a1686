package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/altintasutku/library-management/internal/library"
)

const notBorrowed = "Not Borrowed"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func borrowerOf(v library.BookView) string {
	if v.BorrowedBy == nil {
		return notBorrowed
	}
	return *v.BorrowedBy
}

// addedBook is the result of book add.
type addedBook library.Book

func (b addedBook) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Added book %d: %s\n", b.ID, b.Title)
	return err
}

// updatedBook is the result of book update.
type updatedBook library.Book

func (b updatedBook) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Updated book %d: %s by %s (%s, %d)\n", b.ID, b.Title, b.Author, b.Publisher, b.Year)
	return err
}

// bookDetail is the result of book show.
type bookDetail library.BookView

func (b bookDetail) RenderText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%d\n", b.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", b.Title)
	fmt.Fprintf(tw, "Author:\t%s\n", b.Author)
	fmt.Fprintf(tw, "Publisher:\t%s\n", b.Publisher)
	fmt.Fprintf(tw, "Year:\t%d\n", b.Year)
	fmt.Fprintf(tw, "Borrower:\t%s\n", borrowerOf(library.BookView(b)))
	return tw.Flush()
}

// bookTable is the result of book list and book search.
type bookTable []library.BookView

func (t bookTable) RenderText(w io.Writer) error {
	if len(t) == 0 {
		_, err := fmt.Fprintln(w, "No books found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTitle\tAuthor\tPublisher\tYear\tBorrower")
	for _, v := range t {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", v.ID, v.Title, v.Author, v.Publisher, v.Year, borrowerOf(v))
	}
	return tw.Flush()
}

// borrowedLoan is the result of loan borrow.
type borrowedLoan library.Loan

func (l borrowedLoan) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Book %d borrowed by %s at %s\n", l.BookID, l.BorrowerName, formatTime(l.BorrowDate))
	return err
}

// returnedLoan is the result of loan return.
type returnedLoan library.Loan

func (l returnedLoan) RenderText(w io.Writer) error {
	returned := ""
	if l.ReturnDate != nil {
		returned = formatTime(*l.ReturnDate)
	}
	_, err := fmt.Fprintf(w, "Book %d returned by %s at %s\n", l.BookID, l.BorrowerName, returned)
	return err
}

// activeLoanTable is the result of loan active.
type activeLoanTable []library.ActiveLoan

func (t activeLoanTable) RenderText(w io.Writer) error {
	if len(t) == 0 {
		_, err := fmt.Fprintln(w, "No books are borrowed.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Loan\tBook\tTitle\tBorrower\tSince")
	for _, l := range t {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", l.ID, l.BookID, l.Title, l.BorrowerName, formatTime(l.BorrowDate))
	}
	return tw.Flush()
}

// loanTable is the result of loan history.
type loanTable []library.Loan

func (t loanTable) RenderText(w io.Writer) error {
	if len(t) == 0 {
		_, err := fmt.Fprintln(w, "No loans recorded.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Loan\tBorrower\tBorrowed\tReturned")
	for _, l := range t {
		returned := "-"
		if l.ReturnDate != nil {
			returned = formatTime(*l.ReturnDate)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", l.ID, l.BorrowerName, formatTime(l.BorrowDate), returned)
	}
	return tw.Flush()
}

// importSummary is the result of import.
type importSummary struct {
	Added    []library.Book   `json:"added"`
	Rejected []importRejected `json:"rejected"`
}

type importRejected struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s importSummary) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Imported %d book(s).\n", len(s.Added))
	for _, r := range s.Rejected {
		fmt.Fprintf(w, "  rejected #%d %q: [%s] %s\n", r.Index, r.Title, r.Code, r.Message)
	}
	return nil
}
