// Package harness runs catalog scenarios against a real engine.
//
// A scenario is a YAML file that adds books, lends and returns them, and then
// asserts on the resulting trace and on the rows left in the database.
//
// # Scenario Format
//
//	name: foundation_loan
//	description: "What this scenario validates"
//	setup:
//	  - action: add_book
//	    args: { title: Foundation, author: Isaac Asimov, publisher: Gnome Press, year: 1951 }
//	flow:
//	  - invoke: borrow
//	    args: { id: 1, borrower: alice }
//	    expect:
//	      case: Success
//	      result: { borrower_name: alice }
//	  - invoke: borrow
//	    args: { id: 1, borrower: bob }
//	    expect:
//	      case: ALREADY_BORROWED
//	assertions:
//	  - type: trace_count
//	    action: borrow
//	    case: Success
//	    count: 1
//	  - type: final_state
//	    table: LOANS
//	    where: { book_id: 1 }
//	    expect: { borrower_name: alice }
//
// Setup steps must succeed. A flow step's expect case is either Success or
// one of the error kinds (VALIDATION, NOT_FOUND, ALREADY_BORROWED,
// NO_ACTIVE_LOAN). Result fields are a subset match against the JSON form
// of the returned value; list results are matched as { count, items }.
//
// # Assertion Types
//
//   - trace_contains: an invocation of action with matching args exists
//   - trace_order: the actions first appear in the given order
//   - trace_count: action was invoked exactly count times (optionally only
//     those completing with case)
//   - final_state: exactly one row of table matches where, with expect values
//   - active_loans: exactly count loans are open at the end
//
// # Deterministic Testing
//
// Each scenario runs in a fresh SQLite file with a testutil.StepClock that
// starts at testutil.DefaultEpoch and advances one minute per reading, and
// sequential operation ids. Traces are therefore identical across runs and
// are compared with goldie snapshots in testdata/golden.
package harness
