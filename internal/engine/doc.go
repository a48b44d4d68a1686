// Package engine is the single entry point for catalog and loan operations.
//
// The engine validates caller input, delegates to the catalog and the loan
// ledger, and returns either a value or a *library.Error. It holds no state
// of its own beyond its collaborators, so one Engine may be shared by any
// number of goroutines.
//
// OPERATIONS:
//
//	AddBook       insert a validated book
//	UpdateBook    apply a partial update; NOT_FOUND for unknown ids
//	FindBook      fetch one book; NOT_FOUND if absent
//	ViewBook      fetch one book with its active borrower
//	SearchBooks   title substring search with loan status
//	ListBooks     every book with loan status
//	Borrow        open a loan for a named borrower
//	Return        close the active loan of a book
//	ActiveLoans   every open loan with its book title
//	LoanHistory   every loan of a book, oldest first
//
// Every call is tagged with an operation id. Callers that need to echo the id
// (the CLI does, as trace_id) attach one with ContextWithOpID; otherwise the
// engine generates a UUIDv7.
package engine
