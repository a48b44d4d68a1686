package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/altintasutku/library-management/internal/engine"
	"github.com/altintasutku/library-management/internal/store"
)

// session is an open database with an engine over it, plus the formatter
// for the running command.
type session struct {
	store  *store.Store
	engine *engine.Engine
	out    *OutputFormatter
	ctx    context.Context
}

// openSession opens the configured database and tags the command with a
// fresh operation id. Failures are reported through the formatter.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := newFormatter(cmd, opts)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var storeOpts []store.Option
	if opts.Clock != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.Clock))
	}

	slog.Debug("opening database", "path", opts.Config.Database)
	st, err := store.Open(ctx, opts.Config.Database, storeOpts...)
	if err != nil {
		return nil, out.Fail(err)
	}

	engineOpts := []engine.Option{engine.WithLogger(slog.Default())}
	if opts.IDGenerator != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDGenerator))
	}
	eng, err := engine.NewFromStore(st, engineOpts...)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "create engine", err)
	}

	opID := eng.NextOpID()
	out.TraceID = opID

	return &session{
		store:  st,
		engine: eng,
		out:    out,
		ctx:    engine.ContextWithOpID(ctx, opID),
	}, nil
}

// Close releases the database.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
