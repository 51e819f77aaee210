package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jathurchan/rtiexec/journal"
	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/server"
)

type serveOptions struct {
	ConfigPath string
	Listen     string
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the configured federations until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "rtiexec.yaml", "path to the executor config file")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address, overrides the config file")
	return cmd
}

func runServe(ctx context.Context, rootOpts *rootOptions, opts *serveOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return &commandError{code: exitCommandError, err: err}
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	level := cfg.LogLevel
	if rootOpts.LogLevel != "" {
		level = rootOpts.LogLevel
	}
	log := logger.NewStdLogger(level)

	b, err := cfg.builder(log)
	if err != nil {
		return &commandError{code: exitCommandError, err: err}
	}

	var j *journal.Journal
	if cfg.Journal != "" {
		j, err = journal.Open(cfg.path(cfg.Journal), journal.WithLogger(log))
		if err != nil {
			return err
		}
		defer func() {
			if err := j.Close(); err != nil {
				log.Errorw("Failed to close journal", "error", err)
			}
		}()
		b.WithJournal(j)
	}

	srv, err := b.Build()
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	log.Infow("Executor started", "address", srv.Addr(), "federations", srv.Registry().Names())

	<-ctx.Done()
	log.Infow("Shutting down")

	if err := srv.Stop(context.Background()); err != nil && !errors.Is(err, server.ErrServerStopped) {
		return err
	}
	if j != nil && j.Dropped() > 0 {
		log.Warnw("Journal dropped callbacks", "count", j.Dropped())
	}
	return nil
}
