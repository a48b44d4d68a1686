package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and its relations",
		Long: `Create the database file (if needed) and the BOOKS and LOANS relations.
Existing data is never touched; running init again is harmless.

Example:
  libcat init --db ./library.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.out.Format == "json" {
				return s.out.Success(map[string]string{"database": rootOpts.Config.Database})
			}
			return s.out.Success(fmt.Sprintf("Database ready: %s", rootOpts.Config.Database))
		},
	}
}
