// Package httpapi is the HTTP surface of the reminder service: account
// endpoints, task creation and listing, the live notification stream and the
// internal notify endpoint used by standalone workers.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	reminder "github.com/ace-232/day-planner-app"
	"github.com/ace-232/day-planner-app/internal/auth"
)

// Config holds the dependencies of a Server.
type Config struct {
	Tasks    reminder.TaskStore
	Users    reminder.UserStore
	Producer *reminder.Producer
	Hub      *reminder.Hub
	Tokens   *auth.TokenService
	// InternalKey authorizes POST /api/notify.
	InternalKey string
	// AllowedOrigin is the single CORS origin. Empty disables CORS headers.
	AllowedOrigin string
	// Heartbeat is the interval of SSE keep-alive comments. Defaults to 25s.
	Heartbeat time.Duration
	// Stats reports queue depth on /health when the scheduler supports it.
	Stats reminder.StatsReporter
	// Ping checks backend connectivity for /health.
	Ping   func(ctx context.Context) error
	Logger *slog.Logger
}

// Server serves the API.
type Server struct {
	cfg      Config
	log      *slog.Logger
	validate *validator.Validate
	router   chi.Router
}

// New builds a Server and its routes.
func New(cfg Config) *Server {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 25 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{cfg: cfg, log: cfg.Logger, validate: newValidator()}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.AllowedOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{s.cfg.AllowedOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           600,
		}))
	}

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", s.signup)
		r.Post("/login", s.login)

		r.With(s.internalOnly).Post("/notify", s.notify)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate(false))
			r.Get("/auth/verify", s.verify)
			r.Post("/tasks", s.createTask)
			r.Get("/tasks", s.listTasks)
		})

		// EventSource cannot set headers, so the stream also accepts ?token=.
		r.With(s.authenticate(true)).Get("/notifications/stream", s.stream)
	})
	return r
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
		_, err := reminder.ParseChannel(fl.Field().String())
		return err == nil
	})
	return v
}
