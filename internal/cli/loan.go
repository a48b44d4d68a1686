package cli

import (
	"github.com/spf13/cobra"
)

// NewLoanCommand creates the loan command group.
func NewLoanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Borrow and return books",
	}

	cmd.AddCommand(newLoanBorrowCommand(rootOpts))
	cmd.AddCommand(newLoanReturnCommand(rootOpts))
	cmd.AddCommand(newLoanActiveCommand(rootOpts))
	cmd.AddCommand(newLoanHistoryCommand(rootOpts))

	return cmd
}

// LoanBorrowOptions holds flags for the loan borrow command.
type LoanBorrowOptions struct {
	*RootOptions
	Borrower string
}

func newLoanBorrowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoanBorrowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "borrow <book-id>",
		Short: "Lend a book to a borrower",
		Long: `Lend a book to a borrower. Fails if the book is already on loan.

Example:
  libcat loan borrow 1 --as alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return newFormatter(cmd, opts.RootOptions).Fail(err)
			}

			s, err := openSession(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			loan, err := s.engine.Borrow(s.ctx, id, opts.Borrower)
			if err != nil {
				return s.out.Fail(err)
			}
			return s.out.Success(borrowedLoan(loan))
		},
	}

	cmd.Flags().StringVar(&opts.Borrower, "as", "", "borrower name (required)")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func newLoanReturnCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <book-id>",
		Short: "Return a borrowed book",
		Long: `Close the active loan of a book. The loan stays in the book's history.

Example:
  libcat loan return 1`,
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

			loan, err := s.engine.Return(s.ctx, id)
			if err != nil {
				return s.out.Fail(err)
			}
			return s.out.Success(returnedLoan(loan))
		},
	}
}

func newLoanActiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "active",
		Short:         "List borrowed books",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			loans, err := s.engine.ActiveLoans(s.ctx)
			if err != nil {
				return s.out.Fail(err)
			}
			return s.out.Success(activeLoanTable(loans))
		},
	}
}

func newLoanHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "history <book-id>",
		Short:         "Show every loan of a book",
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

			loans, err := s.engine.LoanHistory(s.ctx, id)
			if err != nil {
				return s.out.Fail(err)
			}
			return s.out.Success(loanTable(loans))
		},
	}
}
