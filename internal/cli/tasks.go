package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/data"
	"github.com/NhaLeTruc/todo-sync/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
		p, err := listParams(cmd)
		if err != nil {
			return err
		}
		if shared, _ := cmd.Flags().GetBool("shared"); shared {
			tasks, err := a.data.SharedWithMe(ctx)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		}
		page, err := a.data.Tasks(ctx, p)
		if err != nil {
			return err
		}
		printTasks(cmd.OutOrStdout(), page.Content)
		fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d tasks\n", page.Number+1, max(1, page.TotalPages), page.TotalElements)
		return nil
	}),
}

var addCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Create a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		req, err := createRequest(cmd, args)
		if err != nil {
			return err
		}
		t, err := a.data.CreateTask(withKeyFlag(ctx, cmd), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d\n", t.ID)
		return nil
	}),
}

var subCmd = &cobra.Command{
	Use:   "sub <parent-id> <description>",
	Short: "Create a subtask",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		parent, err := parseID(args[0])
		if err != nil {
			return err
		}
		req, err := createRequest(cmd, args[1:])
		if err != nil {
			return err
		}
		t, err := a.data.CreateSubtask(withKeyFlag(ctx, cmd), parent, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created subtask #%d under #%d\n", t.ID, parent)
		return nil
	}),
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(setCompleted(true)),
}

var undoCmd = &cobra.Command{
	Use:   "undo <id>",
	Short: "Mark a task not completed",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(setCompleted(false)),
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a task",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		req, err := updateRequest(cmd)
		if err != nil {
			return err
		}
		t, err := a.data.UpdateTask(ctx, id, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task #%d\n", t.ID)
		return nil
	}),
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task and its subtasks",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.data.DeleteTask(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task #%d\n", id)
		return nil
	}),
}

var shareCmd = &cobra.Command{
	Use:   "share <id> <email>",
	Short: "Share a task with another user",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		perm, _ := cmd.Flags().GetString("permission")
		s, err := a.data.ShareTask(ctx, id, model.ShareRequest{
			Email:      args[1],
			Permission: model.Permission(strings.ToUpper(perm)),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Shared task #%d with %s (%s)\n", id, s.SharedWithEmail, s.Permission)
		return nil
	}),
}

func init() {
	listCmd.Flags().Int("page", 0, "page number, starting at 0")
	listCmd.Flags().Int("size", api.DefaultPageSize, "tasks per page")
	listCmd.Flags().String("search", "", "only tasks whose description contains this")
	listCmd.Flags().String("status", "", "open or done")
	listCmd.Flags().String("sort", api.DefaultSortBy, "createdAt, updatedAt, dueDate, description, position or priority")
	listCmd.Flags().Bool("asc", false, "sort ascending")
	listCmd.Flags().Bool("shared", false, "tasks other users shared with you")

	for _, c := range []*cobra.Command{addCmd, subCmd, editCmd} {
		c.Flags().String("priority", "", "LOW, MEDIUM or HIGH")
		c.Flags().String("due", "", "due date: 2006-01-02, \"2006-01-02 15:04\" or RFC 3339")
		c.Flags().Int("hours", 0, "estimated hours")
		c.Flags().Int("minutes", 0, "estimated minutes")
		c.Flags().Int64("category", 0, "category id")
		c.Flags().Int64Slice("tag", nil, "tag id, repeatable")
	}
	editCmd.Flags().String("desc", "", "new description")
	for _, c := range []*cobra.Command{addCmd, subCmd} {
		c.Flags().String("key", "", "idempotency key; repeating a create with the same key returns the first task")
	}

	shareCmd.Flags().String("permission", string(model.PermissionView), "VIEW or EDIT")
}

func setCompleted(done bool) func(context.Context, *cobra.Command, *app, []string) error {
	return func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		t, err := a.data.ToggleComplete(ctx, id, done)
		if err != nil {
			return err
		}
		state := "open"
		if t.IsCompleted {
			state = "done"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task #%d is %s\n", t.ID, state)
		return nil
	}
}

func withKeyFlag(ctx context.Context, cmd *cobra.Command) context.Context {
	if key, _ := cmd.Flags().GetString("key"); key != "" {
		return api.WithIdempotencyKey(ctx, key)
	}
	return ctx
}

func listParams(cmd *cobra.Command) (api.ListParams, error) {
	f := cmd.Flags()
	var p api.ListParams
	p.Page, _ = f.GetInt("page")
	p.Size, _ = f.GetInt("size")
	p.Search, _ = f.GetString("search")
	p.SortBy, _ = f.GetString("sort")
	if asc, _ := f.GetBool("asc"); asc {
		p.SortDirection = "asc"
	}
	status, _ := f.GetString("status")
	switch strings.ToLower(status) {
	case "":
	case "open":
		p.Completed = new(bool)
	case "done":
		done := true
		p.Completed = &done
	default:
		return p, fmt.Errorf("unknown status %q, want open or done", status)
	}
	return p.Normalize(), nil
}

func createRequest(cmd *cobra.Command, args []string) (model.TaskCreateRequest, error) {
	req := model.TaskCreateRequest{Description: strings.Join(args, " ")}
	f := cmd.Flags()

	prio, _ := f.GetString("priority")
	p, ok := model.ParsePriority(prio)
	if !ok {
		return req, fmt.Errorf("unknown priority %q", prio)
	}
	req.Priority = p

	due, err := dueFlag(cmd)
	if err != nil {
		return req, err
	}
	req.DueDate = due

	if req.EstimatedDurationMinutes, err = durationFlags(cmd); err != nil {
		return req, err
	}
	if id, _ := f.GetInt64("category"); id > 0 {
		req.CategoryID = &id
	}
	req.TagIDs, _ = f.GetInt64Slice("tag")
	return req, nil
}

// updateRequest only carries the flags the user set.
func updateRequest(cmd *cobra.Command) (model.TaskUpdateRequest, error) {
	var req model.TaskUpdateRequest
	f := cmd.Flags()

	if f.Changed("desc") {
		desc, _ := f.GetString("desc")
		req.Description = &desc
	}
	if f.Changed("priority") {
		prio, _ := f.GetString("priority")
		p, ok := model.ParsePriority(prio)
		if !ok {
			return req, fmt.Errorf("unknown priority %q", prio)
		}
		req.Priority = &p
	}
	due, err := dueFlag(cmd)
	if err != nil {
		return req, err
	}
	req.DueDate = due
	if f.Changed("hours") || f.Changed("minutes") {
		if req.EstimatedDurationMinutes, err = durationFlags(cmd); err != nil {
			return req, err
		}
	}
	if f.Changed("category") {
		id, _ := f.GetInt64("category")
		req.CategoryID = &id
	}
	if f.Changed("tag") {
		req.TagIDs, _ = f.GetInt64Slice("tag")
	}
	return req, nil
}

func durationFlags(cmd *cobra.Command) (*int, error) {
	h, _ := cmd.Flags().GetInt("hours")
	m, _ := cmd.Flags().GetInt("minutes")
	if h == 0 && m == 0 {
		return nil, nil
	}
	total, err := data.DurationMinutes(h, m)
	if err != nil {
		return nil, err
	}
	return &total, nil
}

func dueFlag(cmd *cobra.Command) (*time.Time, error) {
	v, _ := cmd.Flags().GetString("due")
	if v == "" {
		return nil, nil
	}
	t, err := parseDue(v, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseDue accepts a date (end of that day), a local date and time, or RFC 3339.
func parseDue(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", v, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
		return t.Add(23*time.Hour + 59*time.Minute), nil
	}
	return time.Time{}, fmt.Errorf("cannot read due date %q", v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	now := time.Now()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tDUE\tDESCRIPTION")
	for _, t := range tasks {
		done := " "
		if t.IsCompleted {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Local().Format("2006-01-02 15:04")
			if t.Overdue(now) {
				due += " !"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, done, t.Priority, due, t.Description)
	}
	tw.Flush()
}
