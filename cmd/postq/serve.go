package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reoring/postq/internal/config"
	"github.com/reoring/postq/internal/mockserver"
	"github.com/reoring/postq/internal/store"
	"github.com/reoring/postq/internal/store/filestore"
	"github.com/reoring/postq/internal/store/pgstore"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		db       string
		delay    time.Duration
		failMode string
		validate bool
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mock posts backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			f := cmd.Flags()
			if f.Changed("addr") {
				cfg.Server.Addr = addr
			}
			if f.Changed("db") {
				cfg.Store.Driver = config.DriverFile
				cfg.Store.Path = db
			}
			if f.Changed("delay") {
				cfg.Server.Delay = delay
			}
			if f.Changed("fail-mode") {
				cfg.Failure.Mode = failMode
			}
			if f.Changed("validate") {
				cfg.Server.ValidateRequests = validate
			}
			if f.Changed("watch") {
				cfg.Store.Watch = watch
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, a.log)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "listen address (default from config, :8000)")
	f.StringVar(&db, "db", "", "db.json path; selects the file store")
	f.DurationVar(&delay, "delay", 0, "artificial response delay")
	f.StringVar(&failMode, "fail-mode", "", "never, always, every_nth or seeded")
	f.BoolVar(&validate, "validate", false, "reject writes that do not match the post schemas")
	f.BoolVar(&watch, "watch", false, "reload db.json when it changes")
	return cmd
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return pgstore.Open(ctx, cfg.Store.DSN, pgstore.WithLogger(log))
	case config.DriverFile:
		opts := []filestore.Option{filestore.WithLogger(log)}
		if cfg.Store.Watch {
			opts = append(opts, filestore.WithWatch())
		}
		return filestore.Open(cfg.Store.Path, opts...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// serve runs the backend until ctx is done.
func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	st, err := openStore(ctx, cfg, log.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	failures, err := mockserver.NewFailureInjector(cfg.Failure)
	if err != nil {
		return err
	}
	opts := []mockserver.Option{
		mockserver.WithLogger(log.Named("http")),
		mockserver.WithDelay(cfg.Server.Delay),
		mockserver.WithFailures(failures),
	}
	if cfg.Server.ValidateRequests {
		opts = append(opts, mockserver.WithRequestValidation(cfg.Client.StrictTitles))
	}
	srv := mockserver.New(st, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Server.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
