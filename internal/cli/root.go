// Package cli implements the taskctl commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/config"
	"github.com/NhaLeTruc/todo-sync/internal/data"
	"github.com/NhaLeTruc/todo-sync/internal/notify"
	"github.com/NhaLeTruc/todo-sync/internal/session"
)

var (
	configPath string
	debug      bool
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage your tasks from the terminal",
		Long:          "taskctl talks to the task API, keeps your session between runs and can show a live list with watch.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/todo-sync/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging to stderr")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(listCmd, addCmd, doneCmd, undoCmd, editCmd, rmCmd, subCmd, shareCmd)
	rootCmd.AddCommand(commentsCmd, commentCmd)
	rootCmd.AddCommand(notificationsCmd, readCmd)
	rootCmd.AddCommand(startCmd, stopCmd, logCmd, timesCmd, reportCmd)
	rootCmd.AddCommand(watchCmd)
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", humanize(err))
		return err
	}
	return nil
}

// app is everything a command needs, built from config on first use.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	session  *session.Store
	client   *api.Client
	store    *cache.Store
	data     *data.Data
	notifier notify.Notifier
}

// newLogger is silent unless --debug; errors reach the user through Execute.
func newLogger() *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newApp wires config, session and the client stack. n receives mutation
// failures; nil means they are only logged.
func newApp(n notify.Notifier) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	sess, err := session.Open(cfg.SessionPath, logger)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	if n == nil {
		n = notify.NewLog(logger)
	}
	client := api.New(logger, api.Options{
		BaseURL:        cfg.APIURL,
		Timeout:        cfg.HTTPTimeout,
		Credentials:    sess,
		OnUnauthorized: sess.Expire,
	})
	store := cache.New(logger, data.StoreOptions(n))

	return &app{
		cfg:      cfg,
		logger:   logger,
		session:  sess,
		client:   client,
		store:    store,
		data:     data.New(store, client, n, logger),
		notifier: n,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	if err := a.session.Close(); err != nil {
		a.logger.Warn("close session", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// requireLogin fails early instead of sending a request that will 401.
func (a *app) requireLogin() error {
	if _, _, ok := a.session.Credentials(); !ok {
		return errNotLoggedIn
	}
	return nil
}

// withApp adapts a command body that needs a signed-in client.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}
		return fn(cmd.Context(), cmd, a, args)
	}
}
