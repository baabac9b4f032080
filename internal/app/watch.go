package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/sqlrunner/internal/config"
	"github.com/blackwell-systems/sqlrunner/internal/logging"
	"github.com/blackwell-systems/sqlrunner/internal/output"
	"github.com/blackwell-systems/sqlrunner/internal/runner"
	"github.com/blackwell-systems/sqlrunner/internal/store"
	"github.com/blackwell-systems/sqlrunner/internal/watcher"
)

// runWatch prepares the script, connects to the database and runs the
// watch loop until SIGINT or SIGTERM.
func runWatch(cmd *cobra.Command, s config.Settings) error {
	logger, err := logging.New(logging.Options{
		Level:  s.LogLevel,
		Format: s.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Script checks come first: an unreadable script stops startup before
	// anything else is acquired.
	created, err := watcher.PrepareScript(s.Script)
	if err != nil {
		logger.Error("cannot read script file", zap.String("script", s.Script), zap.Error(err))
		return err
	}
	if created {
		logger.Info("created empty script file", zap.String("script", s.Script))
	}

	lock, err := watcher.AcquireLock(s.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()
	logger.Debug("acquired instance lock", zap.String("lock", lock.Path()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cmd, s, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	exec, err := runner.New(st, logger, runner.WithTable(s.Table))
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	loop, err := watcher.New(s.Script, exec, watcher.Options{
		PollInterval: s.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	return loop.Run(ctx)
}

// openStore connects to the database. The spinner draws only when stderr
// is a terminal.
func openStore(ctx context.Context, cmd *cobra.Command, s config.Settings, logger *zap.Logger) (*store.Store, error) {
	logger.Debug("connecting to database", zap.String("driver", s.Driver))

	spinner := output.NewSpinner(fmt.Sprintf("Connecting to %s database...", s.Driver))
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()

	st, err := store.Open(ctx, s.Driver, s.DSN)
	spinner.Stop()
	if err != nil {
		return nil, err
	}

	logger.Info("connected to database", zap.String("driver", s.Driver))
	return st, nil
}
