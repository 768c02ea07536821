package realtime

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/push"
)

type fakeApplier struct {
	updates       chan model.TaskUpdate
	notifications chan model.Notification
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{
		updates:       make(chan model.TaskUpdate, 8),
		notifications: make(chan model.Notification, 8),
	}
}

func (f *fakeApplier) ApplyTaskUpdate(u model.TaskUpdate)     { f.updates <- u }
func (f *fakeApplier) ApplyNotification(n model.Notification) { f.notifications <- n }

func startHub(t *testing.T) (*push.Hub, string) {
	t.Helper()
	hub := push.NewHub(zap.NewNop(), func(ctx context.Context, token string) (int64, error) {
		if token == "good" {
			return 7, nil
		}
		return 0, push.ErrUnauthorized
	}, 200*time.Millisecond)
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func runClient(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Error("Run did not return after cancel")
		}
	})
}

func TestClient_DeliversAndSurvivesMalformedMessages(t *testing.T) {
	hub, url := startHub(t)
	c := New(zap.NewNop(), Options{
		Dial:           WebSocketDialer(url, "http://localhost/"),
		Token:          func() string { return "good" },
		ReconnectDelay: 50 * time.Millisecond,
		Heartbeat:      200 * time.Millisecond,
	})
	applier := newFakeApplier()
	bridge := NewBridge(zap.NewNop(), c, applier)
	defer bridge.Close()

	var panics int32
	c.Handle(TaskUpdates, func([]byte) {
		atomic.AddInt32(&panics, 1)
		panic("handler bug")
	})
	runClient(t, c)

	// Until SUBSCRIBE is processed nothing is delivered; malformed bodies
	// double as the readiness check.
	require.Eventually(t, func() bool {
		return hub.Publish(7, push.TaskUpdates, []byte("{not json")) == 1
	}, 3*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		return hub.Publish(7, push.Notifications, []byte("[]")) == 1
	}, 3*time.Second, 20*time.Millisecond)

	_, err := hub.PublishJSON(7, push.TaskUpdates, model.TaskUpdate{TaskID: 3, Action: model.ActionDeleted})
	require.NoError(t, err)
	_, err = hub.PublishJSON(7, push.Notifications, model.Notification{ID: "n1", Message: "due soon"})
	require.NoError(t, err)

	select {
	case u := <-applier.updates:
		assert.Equal(t, int64(3), u.TaskID)
		assert.Equal(t, model.ActionDeleted, u.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("task update not delivered")
	}
	select {
	case n := <-applier.notifications:
		assert.Equal(t, "n1", n.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}

	assert.Equal(t, Connected, c.State())
	assert.Positive(t, atomic.LoadInt32(&panics))
	assert.Equal(t, 1, hub.Connected(7))
}

func TestClient_StaysConnectedAcrossHeartbeats(t *testing.T) {
	hub, url := startHub(t)
	c := New(zap.NewNop(), Options{
		Dial:      WebSocketDialer(url, "http://localhost/"),
		Token:     func() string { return "good" },
		Heartbeat: 200 * time.Millisecond,
	})

	var (
		mu     sync.Mutex
		states []State
	)
	c.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	runClient(t, c)

	require.Eventually(t, func() bool { return c.State() == Connected }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(time.Second)

	assert.Equal(t, Connected, c.State())
	assert.Equal(t, 1, hub.Connected(7))
	mu.Lock()
	assert.Equal(t, []State{Connecting, Connected}, states)
	mu.Unlock()
}

func TestClient_RejectedTokenRetriesWithFixedDelay(t *testing.T) {
	_, url := startHub(t)
	dial := WebSocketDialer(url, "http://localhost/")

	var (
		mu       sync.Mutex
		attempts []time.Time
	)
	const delay = 60 * time.Millisecond
	c := New(zap.NewNop(), Options{
		Dial: func(ctx context.Context) (io.ReadWriteCloser, error) {
			mu.Lock()
			attempts = append(attempts, time.Now())
			mu.Unlock()
			return dial(ctx)
		},
		Token:          func() string { return "bad" },
		ReconnectDelay: delay,
		Heartbeat:      -1,
	})
	runClient(t, c)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(attempts) >= 3
	}, 3*time.Second, 10*time.Millisecond)
	assert.NotEqual(t, Connected, c.State())

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(attempts); i++ {
		assert.GreaterOrEqual(t, attempts[i].Sub(attempts[i-1]), delay)
	}
}

func TestClient_DialFailureKeepsRetrying(t *testing.T) {
	var calls int32
	c := New(zap.NewNop(), Options{
		Dial: func(ctx context.Context) (io.ReadWriteCloser, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("connection refused")
		},
		ReconnectDelay: 10 * time.Millisecond,
	})
	runClient(t, c)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, Disconnected, c.State())
}

func TestClient_HandleUnsubscribe(t *testing.T) {
	c := New(zap.NewNop(), Options{Dial: func(context.Context) (io.ReadWriteCloser, error) { return nil, io.EOF }})
	var got []string
	stop := c.Handle(TaskUpdates, func(b []byte) { got = append(got, string(b)) })

	c.dispatch(TaskUpdates, []byte("a"))
	stop()
	c.dispatch(TaskUpdates, []byte("b"))
	c.dispatch(Notifications, []byte("c"))

	assert.Equal(t, []string{"a"}, got)
}
