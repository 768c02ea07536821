package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var commentsCmd = &cobra.Command{
	Use:   "comments <task-id>",
	Short: "Show the comments on a task",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		comments, err := a.data.Comments(ctx, id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(comments) == 0 {
			fmt.Fprintln(out, "No comments.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range comments {
			edited := ""
			if c.IsEdited {
				edited = " (edited)"
			}
			fmt.Fprintf(tw, "#%d\t%s\t%s%s\t%s\n", c.ID, c.AuthorEmail, c.CreatedAt.Local().Format("2006-01-02 15:04"), edited, c.Content)
		}
		return tw.Flush()
	}),
}

var commentCmd = &cobra.Command{
	Use:   "comment <task-id> <text>",
	Short: "Comment on a task",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := a.data.CreateComment(ctx, id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added comment #%d to task #%d\n", c.ID, id)
		return nil
	}),
}
