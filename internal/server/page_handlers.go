package server

import (
	"log/slog"

	"friendfeed/internal/friends"
	"friendfeed/internal/notify"
	"friendfeed/internal/render"
	"friendfeed/internal/session"
	"friendfeed/internal/timeline"

	"github.com/gofiber/fiber/v2"
)

// toastBox returns the toast slot of page.
func toastBox(st *session.State, page string) (*notify.Box, string, bool) {
	switch page {
	case timeline.Page:
		return &st.Timeline.Toast, timelinePath, true
	case friends.Page:
		return &st.Friends.Toast, friendsPath, true
	default:
		return nil, "", false
	}
}

// DismissToast closes a toast before it expires. A stale id leaves a newer toast alone.
func (s *Server) DismissToast(c *fiber.Ctx) error {
	st := sessionState(c)
	box, path, ok := toastBox(st, c.Params("page"))
	if !ok {
		return fiber.ErrNotFound
	}
	dismissed := box.Dismiss(c.Params("id"))

	if wantsJSON(c) {
		return c.JSON(fiber.Map{"dismissed": dismissed})
	}
	if !isFragmentRequest(c) {
		return c.Redirect(path, fiber.StatusSeeOther)
	}
	c.Type("html", "utf-8")
	return s.renderer.Render(c, render.FragmentToast, render.NewToastView(box, s.now()))
}

// Logout ends the backend session and forgets this browser session.
func (s *Server) Logout(c *fiber.Ctx) error {
	st := sessionState(c)
	ctx := c.UserContext()

	if err := s.caller(c, st).Logout(ctx); err != nil {
		s.log.WarnContext(ctx, "backend logout", slog.String("error", err.Error()))
	}
	if err := s.store.Delete(ctx, st.ID); err != nil {
		s.log.ErrorContext(ctx, "delete session", slog.String("error", err.Error()))
	}
	c.Locals(localDropSession, true)
	s.clearCookie(c)
	c.ClearCookie(usernameCookie)

	if wantsJSON(c) {
		return c.JSON(fiber.Map{"success": true})
	}
	return c.Redirect(timelinePath, fiber.StatusSeeOther)
}
