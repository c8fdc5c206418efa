// Command postq runs the mock posts backend and talks to it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reoring/postq/cache"
	"github.com/reoring/postq/internal/config"
	"github.com/reoring/postq/internal/logging"
	"github.com/reoring/postq/posts"
	"github.com/reoring/postq/query"
	"github.com/reoring/postq/query/fetch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		renderError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// app carries state shared by the subcommands.
type app struct {
	out, errOut io.Writer

	cfgPath  string
	baseURL  string
	logLevel string
	strict   bool

	cfg config.Config
	log *zap.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, log: zap.NewNop()}
	root := &cobra.Command{
		Use:           "postq",
		Short:         "Blog post backend and schema-validating client",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "YAML config file")
	pf.StringVar(&a.baseURL, "base-url", "", "backend URL for client commands")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&a.strict, "strict-titles", false, "require titles to start with an uppercase letter")

	root.AddCommand(newServeCmd(a), newPostsCmd(a), newSchemaCmd(a))
	return root
}

// setup loads configuration, lets flags win over it and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.Client.BaseURL = a.baseURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("strict-titles") {
		cfg.Client.StrictTitles = a.strict
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// client builds a post client with its own cache. The caller closes the
// returned cache.
func (a *app) client() (*posts.Client, *cache.Store) {
	c := cache.New(cache.WithLogger(a.log.Named("cache")))
	opts := []posts.Option{posts.WithLogger(a.log.Named("client"))}
	if a.cfg.Client.StrictTitles {
		opts = append(opts, posts.WithStrictTitles())
	}
	base := fetch.New(a.cfg.Client.BaseURL, fetch.WithLogger(a.log.Named("fetch")))
	return posts.NewClient(base, c, opts...), c
}

// renderError prints API errors one message per line and anything else as
// its text.
func renderError(w io.Writer, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if apiErr, ok := query.AsAPIError(err); ok {
		for _, m := range apiErr.Messages() {
			fmt.Fprintln(w, m)
		}
		return
	}
	fmt.Fprintln(w, err)
}
