// Package server is the HTTP surface: fiber routes, middleware wiring, page and
// action handlers, and the websocket toast push.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"friendfeed/internal/backend"
	"friendfeed/internal/cache"
	"friendfeed/internal/config"
	"friendfeed/internal/featureflags"
	"friendfeed/internal/middleware"
	"friendfeed/internal/models"
	"friendfeed/internal/notifications"
	"friendfeed/internal/notify"
	"friendfeed/internal/observability"
	"friendfeed/internal/render"
	"friendfeed/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// Per-session budget for state-changing actions.
const (
	actionLimit  = 60
	actionWindow = time.Minute
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config   *config.Config
	redis    *redis.Client
	backend  *backend.Client
	store    session.Store
	locker   *session.Locker
	tokens   *session.Tokens
	renderer *render.Renderer
	flags    *featureflags.Set
	hub      *notifications.Hub
	notifier *notifications.Notifier
	toasts   *notify.Notifier
	metrics  *middleware.Metrics
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger

	app         *fiber.App
	shutdownCtx context.Context
	shutdownFn  context.CancelFunc
}

// NewServer connects to Redis (when reachable) and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	return NewServerWithDeps(cfg, cache.InitRedis(cfg.RedisURL))
}

// NewServerWithDeps builds a Server around an already connected Redis client.
// A nil client keeps sessions in memory and delivers toasts in-process.
func NewServerWithDeps(cfg *config.Config, redisClient *redis.Client) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("display timezone: %w", err)
	}
	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		redis:    redisClient,
		backend:  backend.NewClient(cfg.BackendURL, cfg.BackendTimeout(), cfg.BackendSessionCookie),
		store:    session.NewStore(redisClient, cfg.SessionTTL()),
		locker:   session.NewLocker(),
		tokens:   session.NewTokens(cfg.SessionSecret, cfg.SessionTTL()),
		renderer: renderer,
		flags:    featureflags.Parse(cfg.FeatureFlags),
		hub:      notifications.NewHub(),
		metrics:  middleware.InitMetrics("friendfeed-web"),
		loc:      loc,
		now:      time.Now,
		log:      observability.GlobalLogger.With(slog.String("component", "server")),
	}
	s.notifier = notifications.NewNotifier(redisClient, s.hub)
	s.toasts = notify.NewNotifier(cfg.ToastTTL(),
		notify.WithPublisher(s.notifier),
		notify.WithClock(func() time.Time { return s.now() }),
	)
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	return s, nil
}

// App returns the fiber app with middleware and routes, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "friendfeed",
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, &models.AppError{Code: models.CodeInternal, Message: fe.Message})
	}
	s.log.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, models.StatusFor(err), models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.MetricsMiddleware(s.metrics))
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := strings.TrimSpace(s.config.AllowedOrigins)
	if origins == "" {
		origins = "http://localhost:" + s.config.Port
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, HX-Request, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
		},
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests, middleware.ErrRateLimited)
		},
	}))
}

// SetupRoutes configures all routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/metrics", s.metrics.Handler())
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "friendfeed metrics"}))
	app.Use("/static", filesystem.New(filesystem.Config{Root: http.FS(render.Static())}))

	app.Get("/ws", s.WebSocketSession(), s.WebsocketHandler())

	pages := app.Group("", s.SessionRequired())
	act := middleware.RateLimit(s.redis, actionLimit, actionWindow, "action")

	pages.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/timeline", fiber.StatusSeeOther) })
	pages.Get("/flags", s.GetFeatureFlags)
	pages.Post("/toast/:page/:id/dismiss", s.DismissToast)
	pages.Post("/logout", s.Logout)

	tl := pages.Group("/timeline")
	tl.Get("/", s.TimelinePage)
	tl.Post("/posts", act, s.SubmitPost)
	tl.Post("/posts/:id/like", act, s.ToggleLike)
	tl.Get("/posts/:id/comments", s.LoadComments)
	tl.Post("/posts/:id/comments/toggle", s.ToggleComments)
	tl.Post("/posts/:id/comments", act, s.SubmitComment)

	fr := pages.Group("/friends")
	fr.Get("/", s.FriendsPage)
	fr.Get("/list", s.FilterFriends)
	fr.Get("/search", s.SearchUsers)
	fr.Post("/tab/:tab", s.SetTab)
	fr.Post("/confirm/cancel", s.CancelConfirmation)
	// Specific /requests and /suggestions routes before generic /:username
	fr.Post("/requests", act, s.SendFriendRequest)
	fr.Post("/requests/:username/respond", act, s.RespondToFriendRequest)
	fr.Post("/requests/:username/cancel", s.CancelFriendRequest)
	fr.Post("/suggestions/:username/dismiss", s.DismissSuggestion)
	fr.Post("/:username/remove", act, s.RemoveFriend)
	fr.Post("/:username/message", s.OpenChat)
}

// Start wires Redis toast fan-out and listens on the configured port.
func (s *Server) Start() error {
	app := s.App()
	if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
		s.log.Warn("toast fan-out unavailable", slog.String("error", err.Error()))
	}
	if mem, ok := s.store.(*session.MemoryStore); ok {
		go s.sweepSessions(mem)
	}

	s.log.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

func (s *Server) sweepSessions(mem *session.MemoryStore) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.shutdownCtx.Done():
			return
		case <-ticker.C:
			if n := mem.Sweep(); n > 0 {
				s.log.Debug("expired sessions swept", slog.Int("count", n))
			}
		}
	}
}

// Shutdown stops accepting requests, closes websocket clients and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			s.log.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		s.log.Error("error shutting down hub", slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	s.log.Info("server shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   s.now(),
	})
}

// ReadinessCheck reports the session store in use. Redis is optional, so a
// missing client is not a failure; an unreachable configured one is.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	store := "memory"
	redisStatus := "disabled"
	if s.redis != nil {
		store = "redis"
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"session_store": store,
			"redis":         redisStatus,
		},
		"websocket_connections": s.hub.Total(),
		"time":                  s.now(),
	})
}

// GetFeatureFlags lists the configured flags and their value for the current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	st := sessionState(c)
	username := s.username(c, st)
	return c.JSON(fiber.Map{
		"flags":      s.flags.For(username),
		"configured": s.flags.Raw(),
	})
}
