package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/altintasutku/library-management/internal/library"
)

// NewBookCommand creates the book command group.
func NewBookCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage catalog entries",
	}

	cmd.AddCommand(newBookAddCommand(rootOpts))
	cmd.AddCommand(newBookUpdateCommand(rootOpts))
	cmd.AddCommand(newBookShowCommand(rootOpts))
	cmd.AddCommand(newBookSearchCommand(rootOpts))
	cmd.AddCommand(newBookListCommand(rootOpts))

	return cmd
}

// BookAddOptions holds flags for the book add command.
type BookAddOptions struct {
	*RootOptions
	Title     string
	Author    string
	Publisher string
	Year      int
}

func newBookAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BookAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		Long: `Add a book to the catalog.

Example:
  libcat book add --title Foundation --author "Isaac Asimov" --publisher "Gnome Press" --year 1951`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			book, err := s.engine.AddBook(s.ctx, library.NewBook{
				Title:     opts.Title,
				Author:    opts.Author,
				Publisher: opts.Publisher,
				Year:      opts.Year,
			})
			if err != nil {
				return s.out.Fail(err)
			}
			return s.out.Success(addedBook(book))
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "book title (required)")
	cmd.Flags().StringVar(&opts.Author, "author", "", "book author (required)")
	cmd.Flags().StringVar(&opts.Publisher, "publisher", "", "book publisher (required)")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "publication year (0-9999)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("publisher")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

// BookUpdateOptions holds flags for the book update command.
type BookUpdateOptions struct {
	*RootOptions
	Title     string
	Author    string
	Publisher string
	Year      int
}

func newBookUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BookUpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <book-id>",
		Short: "Change fields of a book",
		Long: `Change fields of a book. Only the flags given are changed; an empty
value leaves the stored field as it is.

Example:
  libcat book update 1 --publisher Doubleday
  libcat book update 1 --year 0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return newFormatter(cmd, opts.RootOptions).Fail(err)
			}

			var patch library.BookPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &opts.Title
			}
			if flags.Changed("author") {
				patch.Author = &opts.Author
			}
			if flags.Changed("publisher") {
				patch.Publisher = &opts.Publisher
			}
			if flags.Changed("year") {
				patch.Year = &opts.Year
			}

			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			book, err := s.engine.UpdateBook(s.ctx, id, patch)
			if err != nil {
				return s.out.Fail(err)
			}
			return s.out.Success(updatedBook(book))
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "new title")
	cmd.Flags().StringVar(&opts.Author, "author", "", "new author")
	cmd.Flags().StringVar(&opts.Publisher, "publisher", "", "new publisher")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "new publication year (0-9999)")

	return cmd
}

func newBookShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <book-id>",
		Short:         "Show one book and who has it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return newFormatter(cmd, rootOpts).Fail(err)
			}

			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			view, err := s.engine.ViewBook(s.ctx, id)
			if err != nil {
				return s.out.Fail(err)
			}
			return s.out.Success(bookDetail(view))
		},
	}
}

func newBookSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search [title-fragment]",
		Short: "Search books by title",
		Long: `Search books whose title contains the given fragment. ASCII letters match
regardless of case. Without a fragment every book is listed.

Example:
  libcat book search found`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}

			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			views, err := s.engine.SearchBooks(s.ctx, pattern)
			if err != nil {
				return s.out.Fail(err)
			}
			return s.out.Success(bookTable(views))
		},
	}
}

func newBookListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List every book with its borrower",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			views, err := s.engine.ListBooks(s.ctx)
			if err != nil {
				return s.out.Fail(err)
			}
			return s.out.Success(bookTable(views))
		},
	}
}

// parseBookID parses a positional book id.
func parseBookID(arg string) (library.BookID, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, library.NewValidationError(library.FieldBookID, fmt.Sprintf("book id must be a number, got %q", arg))
	}
	id := library.BookID(n)
	if err := library.ValidateBookID(id); err != nil {
		return 0, err
	}
	return id, nil
}
