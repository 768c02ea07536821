package cli

import (
	"context"
	"errors"
	"net/url"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/notify"
	"github.com/NhaLeTruc/todo-sync/internal/realtime"
	"github.com/NhaLeTruc/todo-sync/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live task list that follows changes from other sessions",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().Int("size", 0, "tasks per page")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	toasts := notify.NewChannel(16)
	a, err := newApp(toasts)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt := realtime.New(a.logger, realtime.Options{
		Dial:           realtime.WebSocketDialer(a.cfg.WSURL, origin(a.cfg.APIURL)),
		Token:          a.session.Token,
		ReconnectDelay: a.cfg.ReconnectDelay,
		Heartbeat:      a.cfg.HeartbeatInterval,
	})
	bridge := realtime.NewBridge(a.logger, rt, a.data)
	defer bridge.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("push connection stopped", zap.Error(err))
		}
	}()

	opts := tui.Options{Data: a.data, Conn: rt, Toasts: toasts.C()}
	opts.Params.Size, _ = cmd.Flags().GetInt("size")
	err = tui.Run(ctx, opts)
	cancel()
	<-done
	return err
}

// origin is the scheme and host of the API, sent as the WebSocket Origin.
func origin(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return "http://localhost/"
	}
	return u.Scheme + "://" + u.Host + "/"
}
