// Package worker scans for tasks coming due and notifies their owners.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/push"
	"github.com/NhaLeTruc/todo-sync/internal/repo"
)

// Publisher delivers a JSON message to one user's push destination.
type Publisher interface {
	PublishJSON(userID int64, destination string, v any) (int, error)
}

type Options struct {
	Workers  int
	Interval time.Duration
	// Window is how far ahead a due date counts as due soon.
	Window time.Duration
}

type Pool struct {
	pool   *pgxpool.Pool
	pub    Publisher
	logger *zap.Logger
	opts   Options
	wg     sync.WaitGroup
	stop   chan struct{}
	once   sync.Once
}

func NewPool(pool *pgxpool.Pool, pub Publisher, logger *zap.Logger, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Window <= 0 {
		opts.Window = 24 * time.Hour
	}
	return &Pool{
		pool:   pool,
		pub:    pub,
		logger: logger,
		opts:   opts,
		stop:   make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting due-soon workers",
		zap.Int("workers", p.opts.Workers),
		zap.Duration("interval", p.opts.Interval),
		zap.Duration("window", p.opts.Window),
	)

	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for in-flight claims to finish. It is safe to call twice.
func (p *Pool) Stop() {
	p.once.Do(func() {
		p.logger.Info("Stopping due-soon workers...")
		close(p.stop)
	})
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Drain(ctx)
			if err != nil {
				p.logger.Error("due-soon scan failed", zap.Int("worker", id), zap.Error(err))
			}
			if n > 0 {
				p.logger.Debug("due-soon scan", zap.Int("worker", id), zap.Int("notified", n))
			}
		}
	}
}

// Drain notifies every due-soon task it can claim and returns how many.
func (p *Pool) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		select {
		case <-p.stop:
			return n, nil
		default:
		}
		err := p.processNext(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

type dueTask struct {
	id          int64
	userID      int64
	description string
	dueDate     time.Time
}

// processNext claims one task, records the notification in the same
// transaction and pushes it after commit.
func (p *Pool) processNext(ctx context.Context) error {
	var note model.Notification
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		t, err := p.claimTask(ctx, tx)
		if err != nil {
			return err
		}
		note, err = repo.InsertNotification(ctx, tx, model.Notification{
			UserID:        t.userID,
			Type:          model.NotificationDueSoon,
			Message:       dueMessage(t, time.Now()),
			RelatedTaskID: &t.id,
		})
		if err != nil {
			return fmt.Errorf("insert notification for task %d: %w", t.id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.Info("Task due soon",
		zap.Int64("task_id", *note.RelatedTaskID),
		zap.Int64("user_id", note.UserID),
	)
	if _, err := p.pub.PublishJSON(note.UserID, push.Notifications, note); err != nil {
		p.logger.Warn("push due-soon notification", zap.String("notification_id", note.ID), zap.Error(err))
	}
	return nil
}

func (p *Pool) claimTask(ctx context.Context, tx pgx.Tx) (dueTask, error) {
	var t dueTask
	err := tx.QueryRow(ctx, `
		WITH claimed AS (
			SELECT id
			FROM tasks
			WHERE NOT is_completed
			  AND due_notified_at IS NULL
			  AND due_date > now()
			  AND due_date <= now() + make_interval(secs => $1)
			ORDER BY due_date
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE tasks
		SET due_notified_at = now()
		FROM claimed
		WHERE tasks.id = claimed.id
		RETURNING tasks.id, tasks.user_id, tasks.description, tasks.due_date
	`, p.opts.Window.Seconds()).Scan(&t.id, &t.userID, &t.description, &t.dueDate)
	return t, err
}

func dueMessage(t dueTask, now time.Time) string {
	left := t.dueDate.Sub(now).Round(time.Minute)
	if left < time.Minute {
		return fmt.Sprintf("%q is due now", t.description)
	}
	return fmt.Sprintf("%q is due in %s", t.description, left)
}
