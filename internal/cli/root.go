package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/altintasutku/library-management/internal/config"
	"github.com/altintasutku/library-management/internal/engine"
	"github.com/altintasutku/library-management/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string
	ConfigPath string
	EnvFile    string

	// Config is the resolved configuration, filled in before any subcommand
	// runs.
	Config config.Config

	// Clock and IDGenerator override the production clock and UUIDv7 ids
	// (for testing).
	Clock       store.Clock
	IDGenerator engine.IDGenerator

	// LookupEnv overrides os.LookupEnv (for testing).
	LookupEnv func(string) (string, bool)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.ValidFormats

// NewRootCommand creates the root command for the libcat CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command bound to opts.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libcat",
		Short: "libcat - library catalog and loans",
		Long: `A small library catalog: books, borrowers and loans in one SQLite file.

Settings are resolved from defaults, an optional YAML config file, a .env
file, LIBCAT_* environment variables and finally command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return resolveConfig(cmd, opts)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", config.DefaultFormat, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", config.DefaultDatabase, "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", config.DefaultEnvFile, "path to .env file")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewBookCommand(opts))
	cmd.AddCommand(NewLoanCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolveConfig loads configuration and lets explicitly set flags win.
func resolveConfig(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Loader{
		ConfigPath: opts.ConfigPath,
		EnvFile:    opts.EnvFile,
		LookupEnv:  opts.LookupEnv,
	}.Load()
	if err != nil {
		return configError("load configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = opts.Database
	}
	if flags.Changed("format") {
		cfg.Format = opts.Format
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.Verbose
	}

	if !config.IsValidFormat(cfg.Format) {
		return configError(fmt.Sprintf("invalid format %q: must be one of %v", cfg.Format, ValidFormats), nil)
	}
	if err := cfg.Validate(); err != nil {
		return configError("invalid configuration", err)
	}

	opts.Config = cfg
	opts.Format = cfg.Format
	opts.Verbose = cfg.Verbose
	opts.Database = cfg.Database

	configureLogging(cmd.ErrOrStderr(), cfg.Verbose)
	return nil
}

func configError(message string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, ErrCode: ErrCodeConfig, Message: message, Err: err}
}

// configureLogging installs the default slog handler: Debug when verbose,
// Info otherwise, always on stderr so JSON output stays clean.
func configureLogging(w io.Writer, verbose bool) {
	if w == nil {
		w = os.Stderr
	}
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// newFormatter builds the output formatter for a command.
func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
