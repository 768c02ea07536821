package data

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/api"
	"github.com/NhaLeTruc/todo-sync/internal/cache"
	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/notify"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Data, *MockBackend, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	opts := StoreOptions(rec)
	opts.RetryBase = time.Millisecond
	opts.RetryMax = time.Millisecond
	store := cache.New(zap.NewNop(), opts)
	t.Cleanup(store.Close)

	b := &MockBackend{}
	d := New(store, b, rec, zap.NewNop())
	d.now = func() time.Time { return fixedNow }
	return d, b, rec
}

func firstPage(tasks ...model.Task) taskPage {
	return model.NewPage(tasks, int64(len(tasks)), 0, api.DefaultPageSize)
}

func TestToggleComplete_RollbackOnServerError(t *testing.T) {
	d, b, rec := setup(t)
	listKey := TaskListKey(api.ListParams{})
	before := firstPage(model.Task{ID: 1, Description: "milk"})
	d.store.Set(listKey, before)

	serverErr := &api.Error{Kind: api.KindServer, Status: 500, Message: "boom"}
	var during taskPage
	b.On("ToggleComplete", mock.Anything, int64(1), true).
		Run(func(mock.Arguments) { during, _ = cache.Get[taskPage](d.store, listKey) }).
		Return(model.Task{}, serverErr)

	_, err := d.ToggleComplete(context.Background(), 1, true)
	require.ErrorIs(t, err, serverErr)

	assert.True(t, during.Content[0].IsCompleted, "optimistic value visible while the request runs")
	assert.NotNil(t, during.Content[0].CompletedAt)

	after, _ := cache.Get[taskPage](d.store, listKey)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, rec.Count(notify.LevelError))
	assert.Equal(t, "An unexpected server error occurred. Please try again later.", rec.Messages[0].Text)
	b.AssertExpectations(t)
}

func TestToggleComplete_SuccessInvalidates(t *testing.T) {
	d, b, rec := setup(t)
	listKey := TaskListKey(api.ListParams{})
	d.store.Set(listKey, firstPage(model.Task{ID: 1}))
	d.store.Set(TaskKey(1), model.Task{ID: 1})
	require.False(t, d.store.State(listKey).Stale)
	require.False(t, d.store.State(TaskKey(1)).Stale)

	b.On("ToggleComplete", mock.Anything, int64(1), true).Return(model.Task{ID: 1, IsCompleted: true}, nil)

	task, err := d.ToggleComplete(context.Background(), 1, true)
	require.NoError(t, err)
	assert.True(t, task.IsCompleted)

	assert.True(t, d.store.State(listKey).Stale)
	assert.True(t, d.store.State(TaskKey(1)).Stale)
	detail, _ := cache.Get[model.Task](d.store, TaskKey(1))
	assert.True(t, detail.IsCompleted)
	assert.Zero(t, rec.Count(notify.LevelError))
}

func TestToggleComplete_RollbackRefetchesPushedChange(t *testing.T) {
	d, b, rec := setup(t)
	ctx := context.Background()
	listKey := TaskListKey(api.ListParams{})
	b.On("ListTasks", mock.Anything, mock.Anything).Return(firstPage(model.Task{ID: 1}), nil).Once()
	b.On("ListTasks", mock.Anything, mock.Anything).Return(firstPage(model.Task{ID: 2}, model.Task{ID: 1}), nil).Once()
	_, err := d.Tasks(ctx, api.ListParams{})
	require.NoError(t, err)
	require.False(t, d.store.State(listKey).Stale)

	unsubscribe := d.store.Subscribe(listKey, func(cache.Event) {})
	defer unsubscribe()

	b.On("ToggleComplete", mock.Anything, int64(1), true).
		Run(func(mock.Arguments) { d.ApplyTaskUpdate(model.TaskUpdate{TaskID: 2, Action: model.ActionCreated}) }).
		Return(model.Task{}, &api.Error{Kind: api.KindServer, Status: 500})

	_, err = d.ToggleComplete(ctx, 1, true)
	require.Error(t, err)

	require.Eventually(t, func() bool {
		p, _ := cache.Get[taskPage](d.store, listKey)
		return len(p.Content) == 2
	}, time.Second, time.Millisecond)
	b.AssertNumberOfCalls(t, "ListTasks", 2)
	p, _ := cache.Get[taskPage](d.store, listKey)
	assert.False(t, p.Content[1].IsCompleted, "the failed toggle stays rolled back")
	assert.Equal(t, 1, rec.Count(notify.LevelError))
}

func TestToggleComplete_PushDuringRequestKeepsOptimisticValue(t *testing.T) {
	d, b, _ := setup(t)
	ctx := context.Background()
	listKey := TaskListKey(api.ListParams{})
	b.On("ListTasks", mock.Anything, mock.Anything).Return(firstPage(model.Task{ID: 1}), nil).Once()
	b.On("ListTasks", mock.Anything, mock.Anything).Return(firstPage(model.Task{ID: 1, IsCompleted: true}), nil).Once()
	_, err := d.Tasks(ctx, api.ListParams{})
	require.NoError(t, err)
	require.False(t, d.store.State(listKey).Stale)

	unsubscribe := d.store.Subscribe(listKey, func(cache.Event) {})
	defer unsubscribe()

	var during taskPage
	b.On("ToggleComplete", mock.Anything, int64(1), true).
		Run(func(mock.Arguments) {
			d.ApplyTaskUpdate(model.TaskUpdate{TaskID: 1, Action: model.ActionUpdated})
			time.Sleep(10 * time.Millisecond)
			during, _ = cache.Get[taskPage](d.store, listKey)
		}).
		Return(model.Task{ID: 1, IsCompleted: true}, nil)

	_, err = d.ToggleComplete(ctx, 1, true)
	require.NoError(t, err)

	assert.True(t, during.Content[0].IsCompleted, "the pushed invalidation does not undo the optimistic toggle")
	require.Eventually(t, func() bool {
		return !d.store.State(listKey).Stale
	}, time.Second, time.Millisecond)
	b.AssertNumberOfCalls(t, "ListTasks", 2)
}

func TestToggleComplete_RapidToggleEndsUncompleted(t *testing.T) {
	d, b, _ := setup(t)
	listKey := TaskListKey(api.ListParams{})
	d.store.Set(listKey, firstPage(model.Task{ID: 1}))

	var (
		mu      sync.Mutex
		history []bool
	)
	unsubscribe := d.store.Subscribe(listKey, func(ev cache.Event) {
		if p, ok := ev.Value.(taskPage); ok && ev.Kind == cache.EventUpdated {
			mu.Lock()
			history = append(history, p.Content[0].IsCompleted)
			mu.Unlock()
		}
	})
	defer unsubscribe()

	started := make(chan struct{})
	release := make(chan struct{})
	b.On("ToggleComplete", mock.Anything, int64(1), true).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(model.Task{ID: 1, IsCompleted: true}, nil)
	b.On("ToggleComplete", mock.Anything, int64(1), false).Return(model.Task{ID: 1}, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := d.ToggleComplete(context.Background(), 1, true)
		assert.NoError(t, err)
	}()
	<-started
	go func() {
		defer wg.Done()
		_, err := d.ToggleComplete(context.Background(), 1, false)
		assert.NoError(t, err)
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	got, _ := cache.Get[taskPage](d.store, listKey)
	assert.False(t, got.Content[0].IsCompleted)
	mu.Lock()
	assert.Equal(t, []bool{true, false}, history)
	mu.Unlock()
}

func TestCreateTask_PrependsOptimisticRow(t *testing.T) {
	d, b, _ := setup(t)
	listKey := TaskListKey(api.ListParams{})
	d.store.Set(listKey, firstPage(model.Task{ID: 1}))
	require.False(t, d.store.State(listKey).Stale)

	var during taskPage
	b.On("CreateTask", mock.Anything, mock.AnythingOfType("model.TaskCreateRequest")).
		Run(func(mock.Arguments) { during, _ = cache.Get[taskPage](d.store, listKey) }).
		Return(model.Task{ID: 2, Description: "bread"}, nil)

	created, err := d.CreateTask(context.Background(), model.TaskCreateRequest{Description: "bread"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)

	require.Len(t, during.Content, 2)
	assert.Negative(t, during.Content[0].ID)
	assert.Equal(t, "bread", during.Content[0].Description)
	assert.Equal(t, model.PriorityMedium, during.Content[0].Priority)
	assert.Equal(t, int64(2), during.TotalElements)
	assert.True(t, d.store.State(listKey).Stale)
}

func TestCreateTask_SendsIdempotencyKey(t *testing.T) {
	d, b, _ := setup(t)
	var keys []string
	b.On("CreateTask", mock.Anything, mock.AnythingOfType("model.TaskCreateRequest")).
		Run(func(args mock.Arguments) {
			key, _ := api.IdempotencyKey(args.Get(0).(context.Context))
			keys = append(keys, key)
		}).
		Return(model.Task{ID: 2}, nil)

	_, err := d.CreateTask(context.Background(), model.TaskCreateRequest{Description: "bread"})
	require.NoError(t, err)
	_, err = d.CreateTask(context.Background(), model.TaskCreateRequest{Description: "bread"})
	require.NoError(t, err)
	_, err = d.CreateTask(api.WithIdempotencyKey(context.Background(), "mine"), model.TaskCreateRequest{Description: "bread"})
	require.NoError(t, err)

	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.NotEqual(t, keys[0], keys[1], "each create gets its own key")
	assert.Equal(t, "mine", keys[2])
}

func TestDeleteTask(t *testing.T) {
	tests := []struct {
		name      string
		sendErr   error
		wantRows  int
		wantTotal int64
		wantEntry bool
	}{
		{name: "success drops detail and row", wantRows: 1, wantTotal: 1, wantEntry: false},
		{name: "failure restores both", sendErr: &api.Error{Kind: api.KindForbidden, Status: 403}, wantRows: 2, wantTotal: 2, wantEntry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, b, rec := setup(t)
			listKey := TaskListKey(api.ListParams{})
			d.store.Set(listKey, firstPage(model.Task{ID: 1}, model.Task{ID: 2}))
			d.store.Set(TaskKey(1), model.Task{ID: 1})

			var during taskPage
			b.On("DeleteTask", mock.Anything, int64(1)).
				Run(func(mock.Arguments) { during, _ = cache.Get[taskPage](d.store, listKey) }).
				Return(tt.sendErr)

			err := d.DeleteTask(context.Background(), 1)
			if tt.sendErr != nil {
				assert.Error(t, err)
				assert.Equal(t, 1, rec.Count(notify.LevelError))
			} else {
				assert.NoError(t, err)
			}

			assert.Len(t, during.Content, 1)
			got, _ := cache.Get[taskPage](d.store, listKey)
			assert.Len(t, got.Content, tt.wantRows)
			assert.Equal(t, tt.wantTotal, got.TotalElements)
			_, ok := d.store.Peek(TaskKey(1))
			assert.Equal(t, tt.wantEntry, ok)
		})
	}
}

func TestUpdateTask_MergesEverywhere(t *testing.T) {
	d, b, _ := setup(t)
	listKey := TaskListKey(api.ListParams{})
	d.store.Set(listKey, firstPage(model.Task{ID: 1, Description: "old", Priority: model.PriorityLow}))
	d.store.Set(TaskKey(1), model.Task{ID: 1, Description: "old", Priority: model.PriorityLow})

	desc := "new"
	req := model.TaskUpdateRequest{Description: &desc}
	var duringDetail model.Task
	var duringList taskPage
	b.On("UpdateTask", mock.Anything, int64(1), req).
		Run(func(mock.Arguments) {
			duringDetail, _ = cache.Get[model.Task](d.store, TaskKey(1))
			duringList, _ = cache.Get[taskPage](d.store, listKey)
		}).
		Return(model.Task{ID: 1, Description: "new"}, nil)

	_, err := d.UpdateTask(context.Background(), 1, req)
	require.NoError(t, err)

	assert.Equal(t, "new", duringDetail.Description)
	assert.Equal(t, model.PriorityLow, duringDetail.Priority)
	assert.Equal(t, "new", duringList.Content[0].Description)
	assert.Equal(t, fixedNow, duringDetail.UpdatedAt)
}

func TestValidation_BlocksRequests(t *testing.T) {
	tests := []struct {
		name string
		run  func(d *Data) error
	}{
		{"empty description", func(d *Data) error {
			_, err := d.CreateTask(context.Background(), model.TaskCreateRequest{Description: "   "})
			return err
		}},
		{"long description", func(d *Data) error {
			_, err := d.CreateTask(context.Background(), model.TaskCreateRequest{Description: strings.Repeat("x", MaxDescriptionLength+1)})
			return err
		}},
		{"bad priority", func(d *Data) error {
			p := model.Priority("URGENT")
			_, err := d.UpdateTask(context.Background(), 1, model.TaskUpdateRequest{Priority: &p})
			return err
		}},
		{"empty comment", func(d *Data) error {
			_, err := d.CreateComment(context.Background(), 1, "")
			return err
		}},
		{"bad permission", func(d *Data) error {
			_, err := d.ShareTask(context.Background(), 1, model.ShareRequest{Email: "a@b.c", Permission: "OWNER"})
			return err
		}},
		{"missing email", func(d *Data) error {
			_, err := d.ShareTask(context.Background(), 1, model.ShareRequest{Permission: model.PermissionView})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, b, rec := setup(t)
			err := tt.run(d)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, 1, rec.Count(notify.LevelError))
			b.AssertExpectations(t)
		})
	}
}

func TestDurationMinutes(t *testing.T) {
	m, err := DurationMinutes(1, 30)
	require.NoError(t, err)
	assert.Equal(t, 90, m)

	_, err = DurationMinutes(25, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = DurationMinutes(0, 60)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateSubtask(t *testing.T) {
	t.Run("rejects parents at max depth", func(t *testing.T) {
		d, _, rec := setup(t)
		d.store.Set(TaskKey(9), model.Task{ID: 9, Depth: model.MaxSubtaskDepth})

		_, err := d.CreateSubtask(context.Background(), 9, model.TaskCreateRequest{Description: "deep"})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, 1, rec.Count(notify.LevelError))
	})

	t.Run("prepends to the parent's subtasks", func(t *testing.T) {
		d, b, _ := setup(t)
		d.store.Set(TaskKey(9), model.Task{ID: 9, Depth: 2})
		d.store.Set(SubtasksKey(9), []model.Task{{ID: 10, Depth: 3}})
		require.False(t, d.store.State(SubtasksKey(9)).Stale)

		var during []model.Task
		b.On("CreateSubtask", mock.Anything, int64(9), mock.Anything).
			Run(func(mock.Arguments) { during, _ = cache.Get[[]model.Task](d.store, SubtasksKey(9)) }).
			Return(model.Task{ID: 11, Depth: 3}, nil)

		_, err := d.CreateSubtask(context.Background(), 9, model.TaskCreateRequest{Description: "child"})
		require.NoError(t, err)

		require.Len(t, during, 2)
		assert.Equal(t, 3, during[0].Depth)
		assert.Equal(t, int64(9), *during[0].ParentTaskID)
		assert.True(t, d.store.State(SubtasksKey(9)).Stale)
	})
}

func TestMarkRead_CountFloorsAtZero(t *testing.T) {
	tests := []struct {
		name      string
		count     int64
		wantCount int64
	}{
		{name: "decrements", count: 3, wantCount: 2},
		{name: "stays at zero", count: 0, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, b, _ := setup(t)
			d.store.Set(NotificationsKey(), []model.Notification{{ID: "a"}, {ID: "b"}})
			d.store.Set(NotificationCountKey(), tt.count)

			var (
				list  []model.Notification
				count int64
			)
			b.On("MarkRead", mock.Anything, "a").
				Run(func(mock.Arguments) {
					list, _ = cache.Get[[]model.Notification](d.store, NotificationsKey())
					count, _ = cache.Get[int64](d.store, NotificationCountKey())
				}).
				Return(model.Notification{ID: "a", IsRead: true}, nil)

			require.NoError(t, d.MarkRead(context.Background(), "a"))
			assert.Equal(t, []model.Notification{{ID: "b"}}, list)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestMarkAllRead(t *testing.T) {
	d, b, _ := setup(t)
	d.store.Set(NotificationsKey(), []model.Notification{{ID: "a"}})
	d.store.Set(NotificationCountKey(), int64(1))
	require.False(t, d.store.State(NotificationsKey()).Stale)

	var count int64 = -1
	b.On("MarkAllRead", mock.Anything).
		Run(func(mock.Arguments) { count, _ = cache.Get[int64](d.store, NotificationCountKey()) }).
		Return(nil)

	require.NoError(t, d.MarkAllRead(context.Background()))
	assert.Zero(t, count)
	assert.True(t, d.store.State(NotificationsKey()).Stale)
}

func TestComments_UpdateAndDelete(t *testing.T) {
	d, b, _ := setup(t)
	key := CommentsKey(1)
	d.store.Set(key, []model.Comment{{ID: 5, TaskID: 1, Content: "hi"}, {ID: 6, TaskID: 1, Content: "yo"}})

	var edited []model.Comment
	b.On("UpdateComment", mock.Anything, int64(5), model.CommentRequest{Content: "hello"}).
		Run(func(mock.Arguments) { edited, _ = cache.Get[[]model.Comment](d.store, key) }).
		Return(model.Comment{}, &api.Error{Kind: api.KindServer, Status: 500})

	_, err := d.UpdateComment(context.Background(), 1, 5, "hello")
	require.Error(t, err)
	assert.Equal(t, "hello", edited[0].Content)
	assert.True(t, edited[0].IsEdited)
	restored, _ := cache.Get[[]model.Comment](d.store, key)
	assert.Equal(t, "hi", restored[0].Content)

	b.On("DeleteComment", mock.Anything, int64(6)).Return(nil)
	require.NoError(t, d.DeleteComment(context.Background(), 1, 6))
	left, _ := cache.Get[[]model.Comment](d.store, key)
	assert.Len(t, left, 1)
}

func TestQueries_ShareCacheAndReportOnce(t *testing.T) {
	t.Run("fresh list served from cache", func(t *testing.T) {
		d, b, _ := setup(t)
		b.On("ListTasks", mock.Anything, mock.Anything).Return(firstPage(model.Task{ID: 1}), nil).Once()

		_, err := d.Tasks(context.Background(), api.ListParams{})
		require.NoError(t, err)
		page, err := d.Tasks(context.Background(), api.ListParams{Size: 20, SortBy: "createdAt"})
		require.NoError(t, err)

		assert.Len(t, page.Content, 1)
		b.AssertNumberOfCalls(t, "ListTasks", 1)
	})

	t.Run("server error retried then reported once", func(t *testing.T) {
		d, b, rec := setup(t)
		b.On("GetTask", mock.Anything, int64(5)).Return(model.Task{}, &api.Error{Kind: api.KindServer, Status: 503})

		_, err := d.Task(context.Background(), 5)
		assert.True(t, api.IsKind(err, api.KindServer))
		b.AssertNumberOfCalls(t, "GetTask", 4)
		assert.Equal(t, 1, rec.Count(notify.LevelError))
	})

	t.Run("not found is final", func(t *testing.T) {
		d, b, _ := setup(t)
		b.On("GetTask", mock.Anything, int64(5)).Return(model.Task{}, &api.Error{Kind: api.KindNotFound, Status: 404})

		_, err := d.Task(context.Background(), 5)
		assert.True(t, api.IsKind(err, api.KindNotFound))
		b.AssertNumberOfCalls(t, "GetTask", 1)
	})
}

func TestApplyTaskUpdate(t *testing.T) {
	tests := []struct {
		name        string
		action      model.Action
		wantDetail  bool
		detailStale bool
		listStale   bool
		sharedStale bool
	}{
		{name: "deleted removes detail", action: model.ActionDeleted, wantDetail: false, listStale: true},
		{name: "updated marks stale", action: model.ActionUpdated, wantDetail: true, detailStale: true, listStale: true},
		{name: "completed marks stale", action: model.ActionCompleted, wantDetail: true, detailStale: true, listStale: true},
		{name: "created marks stale", action: model.ActionCreated, wantDetail: true, detailStale: true, listStale: true},
		{name: "shared refreshes shared views", action: model.ActionShared, wantDetail: true, detailStale: true, listStale: true, sharedStale: true},
		{name: "unknown ignored", action: model.Action("ARCHIVED"), wantDetail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, b, _ := setup(t)
			ctx := context.Background()
			listKey := TaskListKey(api.ListParams{})
			b.On("ListTasks", mock.Anything, mock.Anything).Return(firstPage(model.Task{ID: 1}), nil).Once()
			b.On("GetTask", mock.Anything, int64(1)).Return(model.Task{ID: 1}, nil).Once()
			b.On("SharedWithMe", mock.Anything).Return([]model.Task{}, nil).Once()
			_, err := d.Tasks(ctx, api.ListParams{})
			require.NoError(t, err)
			_, err = d.Task(ctx, 1)
			require.NoError(t, err)
			_, err = d.SharedWithMe(ctx)
			require.NoError(t, err)
			for _, k := range []cache.Key{listKey, TaskKey(1), SharedTasksKey()} {
				require.False(t, d.store.State(k).Stale, "%s fresh before the update", k)
			}

			d.ApplyTaskUpdate(model.TaskUpdate{TaskID: 1, Action: tt.action})

			_, ok := d.store.Peek(TaskKey(1))
			assert.Equal(t, tt.wantDetail, ok)
			if ok {
				assert.Equal(t, tt.detailStale, d.store.State(TaskKey(1)).Stale)
			}
			assert.Equal(t, tt.listStale, d.store.State(listKey).Stale)
			assert.Equal(t, tt.sharedStale, d.store.State(SharedTasksKey()).Stale)
		})
	}
}

func TestApplyNotification(t *testing.T) {
	d, _, rec := setup(t)
	d.store.Set(NotificationCountKey(), int64(0))
	require.False(t, d.store.State(NotificationCountKey()).Stale)

	d.ApplyNotification(model.Notification{ID: "n1", Message: "Task due soon"})

	assert.True(t, d.store.State(NotificationCountKey()).Stale)
	assert.Equal(t, 1, rec.Count(notify.LevelInfo))
}
