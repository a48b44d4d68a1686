// Package store provides SQLite-backed durable storage for the library catalog.
//
// The store owns two relations:
//   - BOOKS: the catalog (Catalog)
//   - LOANS: the loan ledger, one row per borrowing episode (Ledger)
//
// # Critical Patterns
//
// Single Active Loan:
//   - Borrow runs check-then-insert inside one BEGIN IMMEDIATE transaction
//   - UNIQUE index on LOANS(BOOK_ID) WHERE RETURN_DATE IS NULL backs it up
//   - Return closes the loan by stamping RETURN_DATE, rows are never deleted
//
// Parameter Binding:
//   - Every statement comes from internal/querysql; no SQL text is built here
//
// Deterministic Reads:
//   - Every listing is ordered by primary key ascending
//   - Empty results are empty slices, never nil
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: LOANS.BOOK_ID must reference BOOKS.ID
//   - _txlock=immediate: transactions take the write lock up front
package store
