package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/config"
	"github.com/NhaLeTruc/todo-sync/internal/server"
	"github.com/NhaLeTruc/todo-sync/internal/testdb"
)

// resetFlags puts every flag back to its default so one run does not leak
// into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type harness struct {
	t      *testing.T
	config string
}

func setupCLI(t *testing.T) *harness {
	pool := testdb.Setup(t)
	testdb.Truncate(t, pool)

	s := server.New(pool, config.Default(), zap.NewNop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("TODO_API_URL", srv.URL+"/api/v1")
	t.Setenv("TODO_WS_URL", "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws")
	t.Setenv("TODO_SESSION_PATH", filepath.Join(dir, "session.db"))
	return &harness{t: t, config: filepath.Join(dir, "config.toml")}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", h.config}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) ok(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "taskctl %s", strings.Join(args, " "))
	return out
}

func TestCLI_Workflow(t *testing.T) {
	h := setupCLI(t)

	out, err := h.run("list")
	require.ErrorIs(t, err, errNotLoggedIn)
	assert.Empty(t, out)

	assert.Contains(t, h.ok("register", "bob@example.com", "-p", "bob-password"), "Logged in as bob@example.com")
	assert.Contains(t, h.ok("register", "alice@example.com", "-p", "alice-password", "--name", "Alice"), "Logged in as alice@example.com")
	assert.Contains(t, h.ok("whoami"), "alice@example.com (Alice)")

	assert.Contains(t, h.ok("add", "Buy", "milk", "--priority", "high", "--due", "2030-01-02"), "Created task #1")
	assert.Contains(t, h.ok("add", "Walk the dog", "--hours", "1", "--minutes", "30"), "Created task #2")
	assert.Contains(t, h.ok("sub", "1", "Find a shop"), "Created subtask #3 under #1")

	out = h.ok("list", "--sort", "position", "--asc")
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "2030-01-02 23:59")
	assert.Contains(t, out, "Walk the dog")
	assert.NotContains(t, out, "Find a shop", "subtasks stay out of the root list")
	assert.Contains(t, out, "page 1/1, 2 tasks")

	assert.Contains(t, h.ok("list", "--status", "done"), "No tasks.")
	assert.Contains(t, h.ok("done", "1"), "Task #1 is done")
	assert.Contains(t, h.ok("list", "--status", "done"), "Buy milk")
	assert.Contains(t, h.ok("undo", "#1"), "Task #1 is open")

	assert.Contains(t, h.ok("edit", "1", "--desc", "Buy oat milk"), "Updated task #1")
	out = h.ok("list", "--search", "oat")
	assert.Contains(t, out, "Buy oat milk")
	assert.Contains(t, out, "HIGH", "fields not given to edit are kept")

	assert.Contains(t, h.ok("comment", "1", "on", "my", "way"), "Added comment #1 to task #1")
	assert.Contains(t, h.ok("comments", "1"), "on my way")
	assert.Contains(t, h.ok("comments", "2"), "No comments.")

	assert.Contains(t, h.ok("share", "1", "bob@example.com", "--permission", "edit"), "Shared task #1 with bob@example.com (EDIT)")

	assert.Contains(t, h.ok("login", "bob@example.com", "-p", "bob-password"), "Logged in as bob@example.com")
	out = h.ok("notifications")
	assert.Contains(t, out, "*")
	assert.Contains(t, out, "1 unread")
	assert.Contains(t, h.ok("list", "--shared"), "Buy oat milk")
	assert.Contains(t, h.ok("read", "--all"), "All notifications read")
	assert.Contains(t, h.ok("notifications"), "0 unread")

	_, err = h.run("rm", "1")
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindForbidden))
	assert.Equal(t, "You do not have permission to perform this action.", humanize(err))

	h.ok("login", "alice@example.com", "-p", "alice-password")
	assert.Contains(t, h.ok("rm", "1"), "Deleted task #1")
	out = h.ok("list")
	assert.NotContains(t, out, "Buy oat milk")
	assert.Contains(t, out, "page 1/1, 1 tasks")

	assert.Contains(t, h.ok("logout"), "Logged out")
	_, err = h.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestCLI_TimeTracking(t *testing.T) {
	h := setupCLI(t)
	h.ok("register", "erin@example.com", "-p", "erin-password")
	h.ok("add", "Write", "report")

	_, err := h.run("stop", "1")
	require.Error(t, err)
	assert.Contains(t, humanize(err), "no timer is running on task #1")

	assert.Contains(t, h.ok("start", "1", "--notes", "outline"), "Started timer #1 on task #1")
	_, err = h.run("start", "1")
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindValidation))
	assert.Contains(t, h.ok("stop", "1"), "Stopped timer on task #1 after 0m")

	assert.Contains(t, h.ok("log", "1", "--hours", "1", "--minutes", "30", "--notes", "draft"), "Logged 1h 30m on task #1")
	out := h.ok("times", "1")
	assert.Contains(t, out, "MANUAL")
	assert.Contains(t, out, "draft")
	assert.Contains(t, out, "outline")
	assert.Contains(t, out, "total 1h 30m")

	out = h.ok("report")
	assert.Contains(t, out, "1h 30m")

	_, err = h.run("log", "1", "--minutes", "75")
	require.Error(t, err)
	assert.Contains(t, humanize(err), "minutes must be between 0 and 59")
	_, err = h.run("report", "--from", "last monday")
	require.Error(t, err)
}

func TestCLI_AddWithKey(t *testing.T) {
	h := setupCLI(t)
	h.ok("register", "fay@example.com", "-p", "fay-password")

	assert.Contains(t, h.ok("add", "Pay", "rent", "--key", "rent-2030-01"), "Created task #1")
	assert.Contains(t, h.ok("add", "Pay", "rent", "--key", "rent-2030-01"), "Created task #1")
	assert.Contains(t, h.ok("add", "Pay", "rent"), "Created task #2")
	assert.Contains(t, h.ok("list"), "page 1/1, 2 tasks")
}

func TestReportRange(t *testing.T) {
	loc := time.FixedZone("test", 2*60*60)
	now := time.Date(2030, 1, 10, 15, 0, 0, 0, loc)
	tests := []struct {
		name     string
		args     []string
		from, to time.Time
		wantErr  bool
	}{
		{name: "last seven days", from: time.Date(2030, 1, 4, 0, 0, 0, 0, loc), to: time.Date(2030, 1, 11, 0, 0, 0, 0, loc)},
		{name: "given days", args: []string{"--from", "2030-01-01", "--to", "2030-01-01"},
			from: time.Date(2030, 1, 1, 0, 0, 0, 0, loc), to: time.Date(2030, 1, 2, 0, 0, 0, 0, loc)},
		{name: "bad day", args: []string{"--to", "01/02/2030"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(reportCmd)
			require.NoError(t, reportCmd.ParseFlags(tt.args))
			from, to, err := reportRange(reportCmd, now, loc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.from.Equal(from), "from %s", from)
			assert.True(t, tt.to.Equal(to), "to %s", to)
		})
	}
}

func TestCLI_BadInput(t *testing.T) {
	h := setupCLI(t)
	h.ok("register", "carol@example.com", "-p", "carol-password")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad priority", []string{"add", "x", "--priority", "urgent"}, `unknown priority "urgent"`},
		{"bad due", []string{"add", "x", "--due", "next week"}, `cannot read due date "next week"`},
		{"bad id", []string{"done", "abc"}, `invalid task id "abc"`},
		{"bad status", []string{"list", "--status", "maybe"}, "unknown status"},
		{"read needs target", []string{"read"}, "--all"},
		{"wrong password", []string{"login", "carol@example.com", "-p", "nope-nope"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.run(tt.args...)
			require.Error(t, err)
			assert.Contains(t, humanize(err), tt.want)
		})
	}
}

func TestCLI_PasswordFromStdin(t *testing.T) {
	h := setupCLI(t)
	h.ok("register", "dave@example.com", "-p", "dave-password")
	h.ok("logout")

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader("dave-password\n"))
	rootCmd.SetArgs([]string{"--config", h.config, "login", "dave@example.com"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Password: ")
	assert.Contains(t, out.String(), "Logged in as dave@example.com")
}

func TestParseDue(t *testing.T) {
	loc := time.FixedZone("test", 2*60*60)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2030-01-02", time.Date(2030, 1, 2, 23, 59, 0, 0, loc), false},
		{"2030-01-02 08:30", time.Date(2030, 1, 2, 8, 30, 0, 0, loc), false},
		{"2030-01-02T08:30:00Z", time.Date(2030, 1, 2, 8, 30, 0, 0, time.UTC), false},
		{"02/01/2030", time.Time{}, true},
		{"tomorrow", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDue(tt.in, loc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"#7", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"x1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, "https://tasks.example.com/", origin("https://tasks.example.com/api/v1"))
	assert.Equal(t, "http://127.0.0.1:8080/", origin("http://127.0.0.1:8080/api/v1"))
	assert.Equal(t, "http://localhost/", origin("::not a url"))
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "The requested resource was not found.", humanize(&api.Error{Kind: api.KindNotFound, Status: 404}))
	assert.Equal(t, "boom", humanize(errors.New("boom")))
}
