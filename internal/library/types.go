package library

import "time"

// BookID identifies a catalog entry. Assigned by the store, never reused.
type BookID int64

// LoanID identifies one borrowing episode.
type LoanID int64

// Book is a catalog entry.
type Book struct {
	ID        BookID `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Year      int    `json:"year"`
}

// BookView is a Book joined with its active loan, if any.
// BorrowedBy is nil when the book is available.
type BookView struct {
	Book
	BorrowedBy *string `json:"borrowed_by"`
}

// Available reports whether the book has no active loan.
func (v BookView) Available() bool {
	return v.BorrowedBy == nil
}

// Loan records one borrowing episode. A nil ReturnDate means the loan is active.
type Loan struct {
	ID           LoanID     `json:"id"`
	BookID       BookID     `json:"book_id"`
	BorrowerName string     `json:"borrower_name"`
	BorrowDate   time.Time  `json:"borrow_date"`
	ReturnDate   *time.Time `json:"return_date"`
}

// Active reports whether the loan has not been closed yet.
func (l Loan) Active() bool {
	return l.ReturnDate == nil
}

// ActiveLoan is an open loan together with the title of the borrowed book.
type ActiveLoan struct {
	Loan
	Title string `json:"title"`
}

// NewBook carries the fields of a book about to be added.
type NewBook struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Year      int    `json:"year"`
}

// BookPatch is a partial update. A nil field, or an empty text field, leaves
// the stored value unchanged. Year uses a pointer so that a real year of 0 can
// be written.
type BookPatch struct {
	Title     *string `json:"title,omitempty"`
	Author    *string `json:"author,omitempty"`
	Publisher *string `json:"publisher,omitempty"`
	Year      *int    `json:"year,omitempty"`
}

// IsEmpty reports whether applying the patch would change nothing.
func (p BookPatch) IsEmpty() bool {
	return isBlank(p.Title) && isBlank(p.Author) && isBlank(p.Publisher) && p.Year == nil
}

func isBlank(s *string) bool {
	return s == nil || NormalizeText(*s) == ""
}
