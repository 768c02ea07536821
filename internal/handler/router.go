package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/service"
)

type Services struct {
	Auth          *service.AuthService
	Tasks         *service.TaskService
	Comments      *service.CommentService
	Notifications *service.NotificationService
	Categories    *service.LabelService
	Tags          *service.LabelService
	Time          *service.TimeService
}

// NewRouter mounts the REST API under /api/v1 and, when ws is non-nil, the
// push endpoint at /ws.
func NewRouter(s Services, ws http.Handler, logger *zap.Logger) http.Handler {
	auth := NewAuthHandler(s.Auth, logger)
	tasks := NewTaskHandler(s.Tasks, logger)
	comments := NewCommentHandler(s.Comments, logger)
	notifications := NewNotificationHandler(s.Notifications, logger)
	times := NewTimeHandler(s.Time, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})
	if ws != nil {
		r.Handle("/ws", ws)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requestLogger(logger))

		r.Post("/auth/register", auth.Register)
		r.Post("/auth/login", auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/auth/logout", auth.Logout)
			r.Get("/auth/me", auth.Me)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", tasks.List)
				r.Post("/", tasks.Create)
				r.Get("/count", tasks.Count)
				r.Get("/shared-with-me", tasks.SharedWithMe)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", tasks.Get)
					r.Put("/", tasks.Update)
					r.Delete("/", tasks.Delete)
					r.Patch("/complete", tasks.Complete)
					r.Patch("/uncomplete", tasks.Uncomplete)
					r.Get("/subtasks", tasks.Subtasks)
					r.Post("/subtasks", tasks.CreateSubtask)
					r.Get("/has-subtasks", tasks.HasSubtasks)
					r.Post("/share", tasks.Share)
					r.Get("/shares", tasks.Shares)
					r.Delete("/share/{userId}", tasks.RevokeShare)
					r.Get("/comments", comments.List)
					r.Post("/comments", comments.Create)

					r.Get("/time-entries", times.List)
					r.Post("/time-entries", times.LogManual)
					r.Post("/time-entries/start", times.Start)
					r.Get("/time-entries/active", times.Active)
					r.Get("/time-entries/total", times.Total)
				})
			})

			r.Put("/comments/{id}", comments.Update)
			r.Delete("/comments/{id}", comments.Delete)

			r.Route("/time-entries", func(r chi.Router) {
				r.Get("/active", times.ActiveForUser)
				r.Get("/report", times.Report)
				r.Post("/{id}/stop", times.Stop)
				r.Patch("/{id}/notes", times.UpdateNotes)
				r.Delete("/{id}", times.Delete)
			})

			r.Route("/categories", NewLabelHandler(s.Categories, logger).Routes)
			r.Route("/tags", NewLabelHandler(s.Tags, logger).Routes)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notifications.Unread)
				r.Get("/count", notifications.Count)
				r.Put("/read-all", notifications.MarkAllRead)
				r.Put("/{id}/read", notifications.MarkRead)
				r.Delete("/{id}", notifications.Delete)
			})
		})
	})
	return r
}

// requestLogger logs one line per request, tagged with the caller's
// correlation id when it sent one.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			if id := r.Header.Get("X-Correlation-ID"); id != "" {
				ww.Header().Set("X-Correlation-ID", id)
			}
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("correlation_id", r.Header.Get("X-Correlation-ID")),
			)
		})
	}
}
