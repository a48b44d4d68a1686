package library

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Field limits. Text limits are in runes.
const (
	MaxTextLength = 100
	MinYear       = 0
	MaxYear       = 9999
)

// Field names used in validation errors.
const (
	FieldTitle     = "title"
	FieldAuthor    = "author"
	FieldPublisher = "publisher"
	FieldYear      = "year"
	FieldBorrower  = "borrower"
	FieldBookID    = "book_id"
)

// NormalizeText trims surrounding whitespace and applies NFC normalization.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Normalize returns a copy of b with every text field normalized.
func (b NewBook) Normalize() NewBook {
	return NewBook{
		Title:     NormalizeText(b.Title),
		Author:    NormalizeText(b.Author),
		Publisher: NormalizeText(b.Publisher),
		Year:      b.Year,
	}
}

// Validate checks a normalized NewBook. All text fields are required.
func (b NewBook) Validate() error {
	if err := requireText(FieldTitle, b.Title); err != nil {
		return err
	}
	if err := requireText(FieldAuthor, b.Author); err != nil {
		return err
	}
	if err := requireText(FieldPublisher, b.Publisher); err != nil {
		return err
	}
	return ValidateYear(b.Year)
}

// Normalize returns a copy of p with present text fields normalized. Fields
// that normalize to "" become nil, meaning "unchanged".
func (p BookPatch) Normalize() BookPatch {
	out := BookPatch{Year: p.Year}
	out.Title = normalizeOptional(p.Title)
	out.Author = normalizeOptional(p.Author)
	out.Publisher = normalizeOptional(p.Publisher)
	return out
}

// Validate checks the fields of a normalized patch that are present.
func (p BookPatch) Validate() error {
	if p.Title != nil {
		if err := checkLength(FieldTitle, *p.Title); err != nil {
			return err
		}
	}
	if p.Author != nil {
		if err := checkLength(FieldAuthor, *p.Author); err != nil {
			return err
		}
	}
	if p.Publisher != nil {
		if err := checkLength(FieldPublisher, *p.Publisher); err != nil {
			return err
		}
	}
	if p.Year != nil {
		return ValidateYear(*p.Year)
	}
	return nil
}

// ValidateYear checks that year lies in [MinYear, MaxYear].
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return NewValidationError(FieldYear, fmt.Sprintf("year must be between %d and %d, got %d", MinYear, MaxYear, year))
	}
	return nil
}

// ValidateBorrower normalizes and checks a borrower name.
func ValidateBorrower(name string) (string, error) {
	name = NormalizeText(name)
	if err := requireText(FieldBorrower, name); err != nil {
		return "", err
	}
	return name, nil
}

// ValidateBookID rejects ids the store can never have assigned.
func ValidateBookID(id BookID) error {
	if id <= 0 {
		return NewValidationError(FieldBookID, fmt.Sprintf("book id must be positive, got %d", id))
	}
	return nil
}

func requireText(field, value string) error {
	if value == "" {
		return NewValidationError(field, field+" must not be empty")
	}
	return checkLength(field, value)
}

func checkLength(field, value string) error {
	if n := utf8.RuneCountInString(value); n > MaxTextLength {
		return NewValidationError(field, fmt.Sprintf("%s exceeds %d characters (%d)", field, MaxTextLength, n))
	}
	return nil
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := NormalizeText(*s)
	if v == "" {
		return nil
	}
	return &v
}
