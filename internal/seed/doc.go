// Package seed bulk-loads catalog entries from CUE files.
//
// A seed file declares a list of books:
//
//	books: [
//		{title: "Foundation", author: "Isaac Asimov", publisher: "Gnome Press", year: 1951},
//	]
//
// Input is unified with an embedded #Book schema before anything is written,
// so type errors, missing fields, unknown fields and out-of-range years are
// reported with their CUE source position. Accepted entries are then added
// one by one through the engine, which applies the same normalization and
// validation as interactive input.
package seed
