package server

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"friendfeed/internal/backend"
	"friendfeed/internal/middleware"
	"friendfeed/internal/models"
	"friendfeed/internal/observability"
	"friendfeed/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Fiber locals owned by the session middleware.
const (
	localState        = "sessionState"
	localDropSession  = "sessionDropped"
	usernameCookie    = "username"
	sessionCookiePath = "/"
)

// SessionRequired loads the browser session's view-model, or starts a new one,
// and holds the session lock until the handler is done. The state is saved
// afterwards unless the handler dropped the session.
func (s *Server) SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, fresh := s.sessionID(c)

		unlock := s.locker.Lock(id)
		defer unlock()

		ctx := observability.WithSessionID(c.UserContext(), id)
		c.SetUserContext(ctx)
		c.Locals(middleware.LocalSessionID, id)

		st, err := s.store.Load(ctx, id)
		switch {
		case errors.Is(err, session.ErrNotFound):
			st = session.New(s.now())
			st.ID = id
		case err != nil:
			s.log.ErrorContext(ctx, "load session", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				&models.AppError{Code: models.CodeBackendUnavailable, Message: "Session store unavailable", Err: err})
		}
		c.Locals(localState, st)

		if fresh {
			if err := s.issueCookie(c, id); err != nil {
				return err
			}
		}

		herr := c.Next()

		if dropped, _ := c.Locals(localDropSession).(bool); dropped {
			return herr
		}
		st.UpdatedAt = s.now()
		if err := s.store.Save(ctx, st); err != nil {
			s.log.ErrorContext(ctx, "save session", slog.String("error", err.Error()))
		}
		return herr
	}
}

// sessionID returns the id in the session cookie, or a new one when the cookie is
// missing or its token does not verify.
func (s *Server) sessionID(c *fiber.Ctx) (id string, fresh bool) {
	if raw := c.Cookies(session.CookieName); raw != "" {
		if parsed, err := s.tokens.Parse(raw); err == nil {
			return parsed, false
		}
	}
	return session.New(s.now()).ID, true
}

func (s *Server) issueCookie(c *fiber.Ctx, id string) error {
	token, err := s.tokens.Issue(id)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     sessionCookiePath,
		Expires:  s.now().Add(s.tokens.TTL()),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     sessionCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// WebSocketSession admits websocket upgrades that carry a valid session cookie.
// The session lock is not taken; the socket only receives pushed toasts.
func (s *Server) WebSocketSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id, err := s.tokens.Parse(c.Cookies(session.CookieName))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Session required"))
		}
		c.Locals(middleware.LocalSessionID, id)
		return c.Next()
	}
}

func sessionState(c *fiber.Ctx) *session.State {
	st, _ := c.Locals(localState).(*session.State)
	return st
}

// username is the session's known identity, else the username cookie.
func (s *Server) username(c *fiber.Ctx, st *session.State) string {
	if st != nil && st.Username != "" {
		return st.Username
	}
	return strings.TrimSpace(c.Cookies(usernameCookie))
}

// caller binds the backend client to the browser's credentials.
func (s *Server) caller(c *fiber.Ctx, st *session.State) *backend.Caller {
	return s.backend.As(backend.Credentials{
		SessionToken: c.Cookies(s.config.BackendSessionCookie),
		Username:     s.username(c, st),
	})
}

// refreshIdentity asks the backend who is logged in. Failures keep what is known.
func (s *Server) refreshIdentity(c *fiber.Ctx, st *session.State) {
	name, err := s.caller(c, st).CurrentUser(c.UserContext())
	if err != nil {
		level := slog.LevelWarn
		if backend.IsUnauthorized(err) {
			level = slog.LevelInfo
		}
		s.log.Log(c.UserContext(), level, "current user", slog.String("error", err.Error()))
		return
	}
	if name = strings.TrimSpace(name); name != "" {
		st.Username = name
	}
}
