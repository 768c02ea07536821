// Package server assembles the reference backend: REST API, push hub and
// due-soon workers over one Postgres pool.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NhaLeTruc/todo-sync/internal/config"
	"github.com/NhaLeTruc/todo-sync/internal/handler"
	"github.com/NhaLeTruc/todo-sync/internal/push"
	"github.com/NhaLeTruc/todo-sync/internal/repo"
	"github.com/NhaLeTruc/todo-sync/internal/service"
	"github.com/NhaLeTruc/todo-sync/internal/worker"
)

type Server struct {
	Hub     *push.Hub
	Workers *worker.Pool

	handler http.Handler
	addr    string
	logger  *zap.Logger
}

func New(pool *pgxpool.Pool, cfg config.Config, logger *zap.Logger) *Server {
	taskRepo := repo.NewTaskRepo(pool)
	shareRepo := repo.NewShareRepo(pool)
	userRepo := repo.NewUserRepo(pool)
	noteRepo := repo.NewNotificationRepo(pool)

	auth := service.NewAuthService(userRepo, logger)
	hub := push.NewHub(logger, auth.Authenticate, cfg.HeartbeatInterval)
	tasks := service.NewTaskService(taskRepo, shareRepo, userRepo, noteRepo, hub, logger)

	services := handler.Services{
		Auth:          auth,
		Tasks:         tasks,
		Comments:      service.NewCommentService(repo.NewCommentRepo(pool), tasks, logger),
		Notifications: service.NewNotificationService(noteRepo),
		Categories:    service.NewLabelService(repo.NewCategoryRepo(pool)),
		Tags:          service.NewLabelService(repo.NewTagRepo(pool)),
		Time:          service.NewTimeService(repo.NewTimeEntryRepo(pool), tasks, logger),
	}

	return &Server{
		Hub: hub,
		Workers: worker.NewPool(pool, hub, logger, worker.Options{
			Workers:  cfg.WorkerCount,
			Interval: cfg.ScanInterval,
			Window:   cfg.DueSoonWindow,
		}),
		handler: handler.NewRouter(services, hub.Handler(), logger),
		addr:    ":" + cfg.Port,
		logger:  logger,
	}
}

func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is done, then drains requests and stops the workers.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.addr,
		Handler:     s.handler,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /ws connections are long lived.
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	s.Workers.Start(gctx)

	g.Go(func() error {
		s.logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Workers.Stop()
		return err
	})

	err := g.Wait()
	if err == nil {
		s.logger.Info("Server stopped")
	}
	return err
}
