package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/config"
	"github.com/NhaLeTruc/todo-sync/internal/data"
	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/notify"
	"github.com/NhaLeTruc/todo-sync/internal/push"
	"github.com/NhaLeTruc/todo-sync/internal/realtime"
	"github.com/NhaLeTruc/todo-sync/internal/testdb"
)

type creds struct {
	mu     sync.Mutex
	token  string
	userID int64
}

func (c *creds) Credentials() (string, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.userID, c.token != ""
}

func (c *creds) Token() string {
	token, _, _ := c.Credentials()
	return token
}

// user is one signed-in client stack: REST client, cache and push connection.
type user struct {
	id       int64
	client   *api.Client
	data     *data.Data
	push     *realtime.Client
	notified *notify.Recorder
}

func setupE2EServer(t *testing.T) (*Server, *httptest.Server) {
	pool := testdb.Setup(t)
	testdb.Truncate(t, pool)

	cfg := config.Default()
	cfg.HeartbeatInterval = 200 * time.Millisecond
	cfg.ScanInterval = 100 * time.Millisecond
	cfg.WorkerCount = 2

	s := New(pool, cfg, zap.NewNop())
	srv := httptest.NewServer(s.Handler())
	s.Workers.Start(context.Background())
	t.Cleanup(func() {
		s.Workers.Stop()
		srv.Close()
	})
	return s, srv
}

func signIn(t *testing.T, srv *httptest.Server, email string) *user {
	t.Helper()
	ctx := context.Background()
	c := &creds{}
	logger := zap.NewNop()
	client := api.New(logger, api.Options{BaseURL: srv.URL + "/api/v1", Credentials: c, Timeout: 5 * time.Second})

	_, err := client.Register(ctx, model.RegisterRequest{Email: email, Password: "long enough"})
	require.NoError(t, err)
	login, err := client.Login(ctx, model.LoginRequest{Email: email, Password: "long enough"})
	require.NoError(t, err)
	c.mu.Lock()
	c.token, c.userID = login.Token, login.UserID
	c.mu.Unlock()

	rec := &notify.Recorder{}
	store := cache.New(logger, data.StoreOptions(rec))
	d := data.New(store, client, rec, logger)

	rt := realtime.New(logger, realtime.Options{
		Dial:           realtime.WebSocketDialer("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", "http://localhost/"),
		Token:          c.Token,
		ReconnectDelay: 100 * time.Millisecond,
		Heartbeat:      200 * time.Millisecond,
	})
	bridge := realtime.NewBridge(logger, rt, d)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rt.Run(runCtx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		bridge.Close()
		store.Close()
	})

	return &user{id: login.UserID, client: client, data: d, push: rt, notified: rec}
}

// waitSubscribed publishes empty messages until the user's queues are live.
func waitSubscribed(t *testing.T, hub *push.Hub, u *user) {
	t.Helper()
	for _, dest := range []string{push.TaskUpdates, push.Notifications} {
		require.Eventually(t, func() bool {
			return hub.Publish(u.id, dest, []byte(`{}`)) == 1
		}, 5*time.Second, 20*time.Millisecond, dest)
	}
	assert.Equal(t, realtime.Connected, u.push.State())
}

func TestE2E_ShareReachesRecipientCache(t *testing.T) {
	s, srv := setupE2EServer(t)
	ctx := context.Background()

	alice := signIn(t, srv, "alice@example.com")
	bob := signIn(t, srv, "bob@example.com")
	waitSubscribed(t, s.Hub, bob)

	shared, err := bob.data.SharedWithMe(ctx)
	require.NoError(t, err)
	assert.Empty(t, shared)

	task, err := alice.data.CreateTask(ctx, model.TaskCreateRequest{Description: "Plan the offsite"})
	require.NoError(t, err)
	_, err = alice.data.ShareTask(ctx, task.ID, model.ShareRequest{Email: "bob@example.com", Permission: model.PermissionEdit})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bob.data.Store().State(data.SharedTasksKey()).Stale
	}, 5*time.Second, 20*time.Millisecond, "SHARED push should mark the shared list stale")

	shared, err = bob.data.SharedWithMe(ctx)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, task.ID, shared[0].ID)

	require.Eventually(t, func() bool {
		return bob.notified.Count(notify.LevelInfo) > 0
	}, 5*time.Second, 20*time.Millisecond, "share notification should reach bob")
}

func TestE2E_EditByRecipientInvalidatesOwner(t *testing.T) {
	s, srv := setupE2EServer(t)
	ctx := context.Background()

	alice := signIn(t, srv, "alice@example.com")
	bob := signIn(t, srv, "bob@example.com")
	waitSubscribed(t, s.Hub, alice)

	task, err := alice.data.CreateTask(ctx, model.TaskCreateRequest{Description: "Draft agenda", Priority: model.PriorityLow})
	require.NoError(t, err)
	_, err = alice.data.ShareTask(ctx, task.ID, model.ShareRequest{Email: "bob@example.com", Permission: model.PermissionEdit})
	require.NoError(t, err)

	page, err := alice.data.Tasks(ctx, api.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, model.PriorityLow, page.Content[0].Priority)

	high := model.PriorityHigh
	_, err = bob.data.UpdateTask(ctx, task.ID, model.TaskUpdateRequest{Priority: &high})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		page, err := alice.data.Tasks(ctx, api.ListParams{})
		return err == nil && len(page.Content) == 1 && page.Content[0].Priority == model.PriorityHigh
	}, 5*time.Second, 50*time.Millisecond)
}

func TestE2E_OptimisticCreateAndToggle(t *testing.T) {
	_, srv := setupE2EServer(t)
	ctx := context.Background()
	alice := signIn(t, srv, "alice@example.com")

	page, err := alice.data.Tasks(ctx, api.ListParams{})
	require.NoError(t, err)
	assert.True(t, page.Empty)

	task, err := alice.data.CreateTask(ctx, model.TaskCreateRequest{Description: "Water plants"})
	require.NoError(t, err)
	assert.Positive(t, task.ID)

	page, err = alice.data.Tasks(ctx, api.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, task.ID, page.Content[0].ID)

	// A row that is gone on the server rolls back the optimistic toggle.
	_, err = alice.client.ToggleComplete(ctx, task.ID, true)
	require.NoError(t, err)
	require.NoError(t, alice.client.DeleteTask(ctx, task.ID))

	_, err = alice.data.ToggleComplete(ctx, task.ID, false)
	assert.True(t, api.IsKind(err, api.KindNotFound))
	assert.Equal(t, 1, alice.notified.Count(notify.LevelError))
}

func TestE2E_DueSoonNotification(t *testing.T) {
	s, srv := setupE2EServer(t)
	ctx := context.Background()
	alice := signIn(t, srv, "alice@example.com")
	waitSubscribed(t, s.Hub, alice)

	count, err := alice.data.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	due := time.Now().Add(2 * time.Hour)
	_, err = alice.data.CreateTask(ctx, model.TaskCreateRequest{Description: "Renew passport", DueDate: &due})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return alice.notified.Count(notify.LevelInfo) > 0
	}, 5*time.Second, 20*time.Millisecond)

	last, ok := alice.notified.Last()
	require.True(t, ok)
	assert.Contains(t, last.Text, "Renew passport")

	count, err = alice.data.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
