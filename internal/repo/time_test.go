package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/testdb"
)

func TestTimeEntryRepo(t *testing.T) {
	pool := testdb.Setup(t)
	ctx := context.Background()
	testdb.Truncate(t, pool)

	alice := testdb.SeedUser(t, pool, "alice@example.com")
	bob := testdb.SeedUser(t, pool, "bob@example.com")
	ids := testdb.SeedTasks(t, pool, alice, 2, 0)
	entries := NewTimeEntryRepo(pool)

	t.Run("timer runs until stopped", func(t *testing.T) {
		_, err := entries.Active(ctx, ids[0], alice)
		assert.ErrorIs(t, err, ErrorNotFound)

		notes := "focus"
		timer, err := entries.StartTimer(ctx, ids[0], alice, &notes)
		require.NoError(t, err)
		assert.True(t, timer.Running)
		assert.Equal(t, model.EntryTimer, timer.EntryType)
		require.NotNil(t, timer.StartTime)
		assert.Nil(t, timer.EndTime)

		_, err = entries.StartTimer(ctx, ids[0], alice, nil)
		assert.ErrorIs(t, err, ErrorConflict)

		active, err := entries.ActiveForUser(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, timer.ID, active.ID)

		stopped, err := entries.Stop(ctx, timer.ID)
		require.NoError(t, err)
		assert.False(t, stopped.Running)
		require.NotNil(t, stopped.EndTime)
		require.NotNil(t, stopped.DurationMinutes)
		assert.Equal(t, 0, *stopped.DurationMinutes)

		_, err = entries.Stop(ctx, timer.ID)
		assert.ErrorIs(t, err, ErrorNotFound)
		_, err = entries.ActiveForUser(ctx, alice)
		assert.ErrorIs(t, err, ErrorNotFound)
	})

	t.Run("manual entries add up", func(t *testing.T) {
		at := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
		m, err := entries.LogManual(ctx, ids[1], alice, 45, nil, at)
		require.NoError(t, err)
		assert.Equal(t, model.EntryManual, m.EntryType)
		assert.True(t, at.Equal(*m.LoggedAt))

		_, err = entries.LogManual(ctx, ids[1], alice, 75, nil, at.Add(24*time.Hour))
		require.NoError(t, err)
		_, err = entries.LogManual(ctx, ids[1], alice, 0, nil, at)
		assert.ErrorIs(t, err, ErrorConstraint)

		total, err := entries.TotalForTask(ctx, ids[1])
		require.NoError(t, err)
		assert.Equal(t, 120, total)

		list, err := entries.ListForTask(ctx, ids[1])
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, 75, *list[0].DurationMinutes, "newest first")
	})

	t.Run("report range is half open", func(t *testing.T) {
		from := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
		got, err := entries.ListForUser(ctx, alice, from, from.Add(33*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1, "end is exclusive")
		assert.Equal(t, 45, *got[0].DurationMinutes)

		got, err = entries.ListForUser(ctx, alice, from.Add(9*time.Hour), from.Add(34*time.Hour))
		require.NoError(t, err)
		assert.Len(t, got, 2, "start is inclusive")

		got, err = entries.ListForUser(ctx, bob, from, from.Add(48*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("notes and delete", func(t *testing.T) {
		list, err := entries.ListForTask(ctx, ids[1])
		require.NoError(t, err)
		id := list[0].ID

		notes := "review"
		e, err := entries.UpdateNotes(ctx, id, &notes)
		require.NoError(t, err)
		assert.Equal(t, "review", *e.Notes)

		require.NoError(t, entries.Delete(ctx, id))
		assert.ErrorIs(t, entries.Delete(ctx, id), ErrorNotFound)
		_, err = entries.UpdateNotes(ctx, id, &notes)
		assert.ErrorIs(t, err, ErrorNotFound)
	})
}
