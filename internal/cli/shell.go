package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/altintasutku/library-management/internal/engine"
	"github.com/altintasutku/library-management/internal/library"
)

// Action is one entry of the interactive menu.
type Action int

const (
	ActionAddBook Action = iota + 1
	ActionUpdateBook
	ActionFindBook
	ActionSearchBooks
	ActionListBooks
	ActionBorrow
	ActionReturn
	ActionActiveLoans
	ActionLoanHistory
	ActionQuit
)

var menu = []struct {
	action Action
	label  string
}{
	{ActionAddBook, "Add Book"},
	{ActionUpdateBook, "Update Book"},
	{ActionFindBook, "Find Book by ID"},
	{ActionSearchBooks, "Search Book by Title"},
	{ActionListBooks, "List Books"},
	{ActionBorrow, "Borrow Book"},
	{ActionReturn, "Return Book"},
	{ActionActiveLoans, "List Borrowed Books"},
	{ActionLoanHistory, "Loan History"},
	{ActionQuit, "Quit"},
}

// NewShellCommand creates the interactive shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive menu session",
		Long: `Start a line-based interactive session. You are asked for your name
once; books you borrow are lent to that name.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			sh := NewShell(s.engine, cmd.InOrStdin(), cmd.OutOrStdout())
			if err := sh.Run(s.ctx); err != nil {
				return s.out.Fail(err)
			}
			return nil
		},
	}
}

// Shell runs the interactive menu over an engine.
type Shell struct {
	eng  *engine.Engine
	in   *bufio.Scanner
	out  io.Writer
	text *OutputFormatter
	user string
}

// NewShell creates a shell reading lines from in and writing to out.
func NewShell(eng *engine.Engine, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		eng:  eng,
		in:   bufio.NewScanner(in),
		out:  out,
		text: &OutputFormatter{Format: "text", Writer: out},
	}
}

// errQuit ends the session.
var errQuit = errors.New("quit")

// Run asks for the user name and then serves menu choices until Quit or end
// of input. Rejected requests are printed and the session continues; storage
// failures end it.
func (sh *Shell) Run(ctx context.Context) error {
	for sh.user == "" {
		name, err := sh.ask("Enter your name: ")
		if err != nil {
			return ignoreEOF(err)
		}
		sh.user, err = library.ValidateBorrower(name)
		if err != nil {
			fmt.Fprintln(sh.out, "Name must not be empty.")
		}
	}
	fmt.Fprintf(sh.out, "Welcome, %s.\n", sh.user)

	for {
		sh.printMenu()
		choice, err := sh.ask("> ")
		if err != nil {
			return ignoreEOF(err)
		}

		action, ok := parseAction(choice)
		if !ok {
			fmt.Fprintf(sh.out, "Unknown choice %q.\n", choice)
			continue
		}

		err = sh.dispatch(ctx, action)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			fmt.Fprintln(sh.out, "Goodbye.")
			return nil
		case errors.Is(err, io.EOF):
			return nil
		case ExitCodeForKind(library.KindOf(err)) == ExitFailure:
			code, message, _ := describe(err)
			_ = sh.text.Error(code, message, nil)
		default:
			return err
		}
	}
}

func (sh *Shell) printMenu() {
	fmt.Fprintln(sh.out)
	for _, item := range menu {
		fmt.Fprintf(sh.out, "%d. %s\n", item.action, item.label)
	}
}

func parseAction(choice string) (Action, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil || n < int(ActionAddBook) || n > int(ActionQuit) {
		return 0, false
	}
	return Action(n), true
}

// dispatch performs one menu action.
func (sh *Shell) dispatch(ctx context.Context, action Action) error {
	switch action {
	case ActionAddBook:
		b, err := sh.askNewBook()
		if err != nil {
			return err
		}
		book, err := sh.eng.AddBook(ctx, b)
		if err != nil {
			return err
		}
		return sh.text.Success(addedBook(book))

	case ActionUpdateBook:
		id, err := sh.askBookID()
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "Leave a field empty to keep its current value.")
		patch, err := sh.askPatch()
		if err != nil {
			return err
		}
		book, err := sh.eng.UpdateBook(ctx, id, patch)
		if err != nil {
			return err
		}
		return sh.text.Success(updatedBook(book))

	case ActionFindBook:
		id, err := sh.askBookID()
		if err != nil {
			return err
		}
		view, err := sh.eng.ViewBook(ctx, id)
		if err != nil {
			return err
		}
		return sh.text.Success(bookDetail(view))

	case ActionSearchBooks:
		pattern, err := sh.ask("Title contains: ")
		if err != nil {
			return err
		}
		views, err := sh.eng.SearchBooks(ctx, pattern)
		if err != nil {
			return err
		}
		return sh.text.Success(bookTable(views))

	case ActionListBooks:
		views, err := sh.eng.ListBooks(ctx)
		if err != nil {
			return err
		}
		return sh.text.Success(bookTable(views))

	case ActionBorrow:
		id, err := sh.askBookID()
		if err != nil {
			return err
		}
		loan, err := sh.eng.Borrow(ctx, id, sh.user)
		if err != nil {
			return err
		}
		return sh.text.Success(borrowedLoan(loan))

	case ActionReturn:
		id, err := sh.askBookID()
		if err != nil {
			return err
		}
		loan, err := sh.eng.Return(ctx, id)
		if err != nil {
			return err
		}
		return sh.text.Success(returnedLoan(loan))

	case ActionActiveLoans:
		loans, err := sh.eng.ActiveLoans(ctx)
		if err != nil {
			return err
		}
		return sh.text.Success(activeLoanTable(loans))

	case ActionLoanHistory:
		id, err := sh.askBookID()
		if err != nil {
			return err
		}
		loans, err := sh.eng.LoanHistory(ctx, id)
		if err != nil {
			return err
		}
		return sh.text.Success(loanTable(loans))

	case ActionQuit:
		return errQuit
	}

	return fmt.Errorf("unhandled action %d", action)
}

func (sh *Shell) ask(prompt string) (string, error) {
	fmt.Fprint(sh.out, prompt)
	if !sh.in.Scan() {
		if err := sh.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return sh.in.Text(), nil
}

func (sh *Shell) askBookID() (library.BookID, error) {
	s, err := sh.ask("Book ID: ")
	if err != nil {
		return 0, err
	}
	return parseBookID(strings.TrimSpace(s))
}

func (sh *Shell) askYear(prompt string) (*int, error) {
	s, err := sh.ask(prompt)
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return nil, library.NewValidationError(library.FieldYear, fmt.Sprintf("year must be a number, got %q", s))
	}
	return &year, nil
}

func (sh *Shell) askNewBook() (library.NewBook, error) {
	var b library.NewBook
	var err error
	if b.Title, err = sh.ask("Title: "); err != nil {
		return b, err
	}
	if b.Author, err = sh.ask("Author: "); err != nil {
		return b, err
	}
	if b.Publisher, err = sh.ask("Publisher: "); err != nil {
		return b, err
	}
	year, err := sh.askYear("Year: ")
	if err != nil {
		return b, err
	}
	if year == nil {
		return b, library.NewValidationError(library.FieldYear, "year must not be empty")
	}
	b.Year = *year
	return b, nil
}

func (sh *Shell) askPatch() (library.BookPatch, error) {
	var p library.BookPatch
	fields := []struct {
		prompt string
		dst    **string
	}{
		{"New title: ", &p.Title},
		{"New author: ", &p.Author},
		{"New publisher: ", &p.Publisher},
	}
	for _, f := range fields {
		s, err := sh.ask(f.prompt)
		if err != nil {
			return p, err
		}
		*f.dst = &s
	}

	year, err := sh.askYear("New year: ")
	if err != nil {
		return p, err
	}
	p.Year = year
	return p, nil
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
