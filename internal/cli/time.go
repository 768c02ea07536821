package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

var startCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Start a timer on a task",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		e, err := a.data.StartTimer(ctx, id, notesFlag(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Started timer #%d on task #%d\n", e.ID, id)
		return nil
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop <task-id>",
	Short: "Stop the running timer on a task",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		active, err := a.data.ActiveTimer(ctx, id)
		if err != nil {
			return err
		}
		if active == nil {
			return fmt.Errorf("no timer is running on task #%d", id)
		}
		e, err := a.data.StopTimer(ctx, id, active.ID)
		if err != nil {
			return err
		}
		took, _ := e.Minutes()
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped timer on task #%d after %s\n", id, model.FormatMinutes(took))
		return nil
	}),
}

var logCmd = &cobra.Command{
	Use:   "log <task-id>",
	Short: "Log time worked on a task",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		h, _ := cmd.Flags().GetInt("hours")
		m, _ := cmd.Flags().GetInt("minutes")
		e, err := a.data.LogTime(ctx, id, h, m, notesFlag(cmd))
		if err != nil {
			return err
		}
		logged, _ := e.Minutes()
		fmt.Fprintf(cmd.OutOrStdout(), "Logged %s on task #%d\n", model.FormatMinutes(logged), id)
		return nil
	}),
}

var timesCmd = &cobra.Command{
	Use:   "times <task-id>",
	Short: "List time tracked on a task",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		entries, err := a.data.TimeEntries(ctx, id)
		if err != nil {
			return err
		}
		total, err := a.data.TotalTime(ctx, id)
		if err != nil {
			return err
		}
		printTimeEntries(cmd.OutOrStdout(), entries)
		fmt.Fprintf(cmd.OutOrStdout(), "total %s\n", model.FormatMinutes(total))
		return nil
	}),
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show time tracked in a date range",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
		from, to, err := reportRange(cmd, time.Now(), time.Local)
		if err != nil {
			return err
		}
		r, err := a.data.TimeReport(ctx, from, to)
		if err != nil {
			return err
		}
		printTimeEntries(cmd.OutOrStdout(), r.Entries)
		fmt.Fprintf(cmd.OutOrStdout(), "%s to %s: %s\n",
			from.Format("2006-01-02"), to.Format("2006-01-02"), model.FormatMinutes(r.TotalMinutes))
		return nil
	}),
}

func init() {
	startCmd.Flags().String("notes", "", "what you are working on")
	logCmd.Flags().String("notes", "", "what you worked on")
	logCmd.Flags().Int("hours", 0, "hours worked, 0 to 24")
	logCmd.Flags().Int("minutes", 0, "minutes worked, 0 to 59")
	reportCmd.Flags().String("from", "", "first day, 2006-01-02 (default a week ago)")
	reportCmd.Flags().String("to", "", "last day, 2006-01-02 (default today)")
}

func notesFlag(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("notes") {
		return nil
	}
	v, _ := cmd.Flags().GetString("notes")
	return &v
}

// reportRange turns the inclusive --from/--to days into [from, to).
func reportRange(cmd *cobra.Command, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	from, to := today.AddDate(0, 0, -6), today
	day := func(name string, def time.Time) (time.Time, error) {
		v, _ := cmd.Flags().GetString(name)
		if v == "" {
			return def, nil
		}
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return t, fmt.Errorf("cannot read --%s %q, want 2006-01-02", name, v)
		}
		return t, nil
	}
	from, err := day("from", from)
	if err != nil {
		return from, to, err
	}
	if to, err = day("to", to); err != nil {
		return from, to, err
	}
	return from, to.AddDate(0, 0, 1), nil
}

func printTimeEntries(w io.Writer, entries []model.TimeEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No time entries.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTASK\tTYPE\tWHEN\tDURATION\tNOTES")
	for _, e := range entries {
		when := e.CreatedAt
		if e.StartTime != nil {
			when = *e.StartTime
		} else if e.LoggedAt != nil {
			when = *e.LoggedAt
		}
		dur := "running"
		if m, ok := e.Minutes(); ok {
			dur = model.FormatMinutes(m)
		}
		notes := ""
		if e.Notes != nil {
			notes = *e.Notes
		}
		fmt.Fprintf(tw, "%d\t#%d\t%s\t%s\t%s\t%s\n", e.ID, e.TaskID, e.EntryType, when.Local().Format("2006-01-02 15:04"), dur, notes)
	}
	tw.Flush()
}
