package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "List your notifications",
	Args:    cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
		list, err := a.data.Notifications(ctx)
		if err != nil {
			return err
		}
		unread, err := a.data.UnreadCount(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		onlyUnread, _ := cmd.Flags().GetBool("unread")

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, n := range list {
			if onlyUnread && n.IsRead {
				continue
			}
			mark := " "
			if !n.IsRead {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, n.ID, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Message)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d unread\n", unread)
		return nil
	}),
}

var readCmd = &cobra.Command{
	Use:   "read [notification-id]",
	Short: "Mark a notification, or all of them, as read",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		switch {
		case all:
			if err := a.data.MarkAllRead(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All notifications read")
		case len(args) == 1:
			if err := a.data.MarkRead(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notification %s read\n", args[0])
		default:
			return errors.New("give a notification id or --all")
		}
		return nil
	}),
}

func init() {
	notificationsCmd.Flags().Bool("unread", false, "only unread notifications")
	readCmd.Flags().Bool("all", false, "mark every notification read")
}
