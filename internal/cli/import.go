package cli

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/altintasutku/library-management/internal/seed"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	CollectAll bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file.cue|dir>",
		Short: "Bulk-add books from CUE seed files",
		Long: `Bulk-add books declared in a CUE file, or in every CUE file of a directory:

  books: [
    {title: "Foundation", author: "Isaac Asimov", publisher: "Gnome Press", year: 1951},
  ]

The input is checked against the book schema before anything is written.
Relative paths are resolved against import_dir from the configuration.

Example:
  libcat import seeds/classics.cue
  libcat import seeds/ --collect-all`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.CollectAll, "collect-all", false, "keep going after a rejected book and report all rejections")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, path string) error {
	if !filepath.IsAbs(path) && opts.Config.ImportDir != "" {
		path = filepath.Join(opts.Config.ImportDir, path)
	}

	entries, err := seed.Load(path)
	if err != nil {
		out := newFormatter(cmd, opts.RootOptions)
		code := ErrCodeImport
		var loadErr *seed.LoadError
		if errors.As(err, &loadErr) {
			code = loadErr.Code
		}
		if outErr := out.Error(code, err.Error(), nil); outErr != nil {
			return WrapExitError(ExitCommandError, "write output", outErr)
		}
		exitErr := WrapExitError(ExitFailure, "import", err)
		exitErr.Reported = true
		return exitErr
	}
	slog.Debug("seed loaded", "path", path, "books", len(entries))

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	mode := seed.ModeFailFast
	if opts.CollectAll {
		mode = seed.ModeCollectAll
	}

	report, err := seed.Apply(s.ctx, s.engine, entries, mode)
	if err != nil {
		return s.out.Fail(err)
	}

	summary := importSummary{Added: report.Added, Rejected: []importRejected{}}
	for _, r := range report.Rejected {
		code, message, _ := describe(r.Err)
		summary.Rejected = append(summary.Rejected, importRejected{
			Index:   r.Index,
			Title:   r.Entry.Book.Title,
			Code:    code,
			Message: message,
		})
	}
	if err := s.out.Success(summary); err != nil {
		return err
	}
	if len(summary.Rejected) > 0 {
		exitErr := NewExitError(ExitFailure, "some books were rejected")
		exitErr.Reported = true
		return exitErr
	}
	return nil
}
