// Package library defines the catalog data model shared by the store, the
// engine and the CLI: books, loans, the joined book view, partial updates and
// the error taxonomy every operation reports through.
//
// # Availability Invariant
//
// For any book at most one Loan has a nil ReturnDate. The store enforces it
// twice: a check inside the borrow transaction and a partial unique index on
// LOANS(BOOK_ID) WHERE RETURN_DATE IS NULL.
//
// # Text Fields
//
// All user text (title, author, publisher, borrower) is trimmed and NFC
// normalised before validation so that visually identical input compares equal
// in storage and in title search. Lengths are counted in runes and capped at
// MaxTextLength.
package library
