package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/altintasutku/library-management/internal/library"
)

//go:embed schema.cue
var schemaCUE string

// Error codes.
const (
	ErrCodeNotFound    = "E_NOT_FOUND"    // Path not found
	ErrCodeLoadFailed  = "E_LOAD_FAILED"  // CUE load failed
	ErrCodeBuildFailed = "E_BUILD_FAILED" // CUE build failed
	ErrCodeSchema      = "E_SCHEMA"       // Input does not satisfy #Book
	ErrCodeNoBooks     = "E_NO_BOOKS"     // Input declares no books
)

// LoadError is a seed input error with its CUE source position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Entry is one book declared in a seed file.
type Entry struct {
	Book library.NewBook
	Pos  token.Pos
}

// Load reads books from a .cue file or from every .cue file of a directory.
func Load(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("seed path not found: %s", path)}
	}

	ctx := cuecontext.New()
	var data cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
		}
		if err := instances[0].Err; err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", err)}
		}
		data = ctx.BuildInstance(instances[0])
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
		}
		data = ctx.CompileBytes(src, cue.Filename(path))
	}
	if err := data.Err(); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}

	return decode(ctx, data)
}

// Parse reads books from CUE source held in memory.
func Parse(filename string, src []byte) ([]Entry, error) {
	ctx := cuecontext.New()
	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}
	return decode(ctx, data)
}

func decode(ctx *cue.Context, data cue.Value) ([]Entry, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}

	if !data.LookupPath(cue.ParsePath("books")).Exists() {
		return nil, &LoadError{Code: ErrCodeNoBooks, Message: "no books field declared", Pos: data.Pos()}
	}

	v := schema.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeSchema, err)
	}

	iter, err := v.LookupPath(cue.ParsePath("books")).List()
	if err != nil {
		return nil, formatCUEError(ErrCodeSchema, err)
	}

	entries := []Entry{}
	for iter.Next() {
		entry, err := decodeBook(iter.Value())
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeBook(v cue.Value) (Entry, error) {
	var b library.NewBook
	fields := []struct {
		name string
		dst  *string
	}{
		{"title", &b.Title},
		{"author", &b.Author},
		{"publisher", &b.Publisher},
	}
	for _, f := range fields {
		s, err := v.LookupPath(cue.ParsePath(f.name)).String()
		if err != nil {
			return Entry{}, formatCUEError(ErrCodeSchema, err)
		}
		*f.dst = s
	}

	year, err := v.LookupPath(cue.ParsePath("year")).Int64()
	if err != nil {
		return Entry{}, formatCUEError(ErrCodeSchema, err)
	}
	b.Year = int(year)

	return Entry{Book: b, Pos: v.Pos()}, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(code string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	loadErr := &LoadError{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}

// Adder adds one book. Implemented by *engine.Engine.
type Adder interface {
	AddBook(ctx context.Context, b library.NewBook) (library.Book, error)
}

// Mode controls how rejected entries are handled.
type Mode int

const (
	// ModeFailFast stops at the first rejected entry.
	ModeFailFast Mode = iota
	// ModeCollectAll attempts every entry and reports all rejections.
	ModeCollectAll
)

// Report summarizes an import.
type Report struct {
	Added    []library.Book
	Rejected []Rejection
}

// Rejection is an entry the engine refused.
type Rejection struct {
	Index int
	Entry Entry
	Err   error
}

// Apply adds entries in order. Entries added before a failure stay added.
// The returned error is the first storage error, or in ModeFailFast the first
// rejection; validation rejections in ModeCollectAll are only reported.
func Apply(ctx context.Context, adder Adder, entries []Entry, mode Mode) (Report, error) {
	report := Report{Added: []library.Book{}, Rejected: []Rejection{}}

	for i, entry := range entries {
		book, err := adder.AddBook(ctx, entry.Book)
		if err != nil {
			report.Rejected = append(report.Rejected, Rejection{Index: i, Entry: entry, Err: err})
			if mode == ModeFailFast || library.IsStorage(err) {
				return report, err
			}
			continue
		}
		report.Added = append(report.Added, book)
	}

	return report, nil
}
