package server

import (
	"errors"
	"strings"

	"friendfeed/internal/models"
	"friendfeed/internal/render"

	"github.com/gofiber/fiber/v2"
)

// actionResponse is the JSON answer of a page action.
type actionResponse struct {
	State any    `json:"state"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// reply answers a page request in the form the client asked for:
//   - JSON clients get the affected view-model;
//   - fragment clients (HX-Request) get the re-rendered regions;
//   - plain GETs get the full page;
//   - plain form posts are redirected back to the page, which shows the outcome.
type reply struct {
	path      string
	model     any
	page      render.Part
	fragments []render.Part
}

func (s *Server) send(c *fiber.Ctx, r reply, err error) error {
	status := fiber.StatusOK
	if err != nil {
		status = models.StatusFor(err)
	}

	if wantsJSON(c) {
		body := actionResponse{State: r.model}
		if err != nil {
			body.Error, body.Code = errorMessage(err), models.CodeOf(err)
		}
		return c.Status(status).JSON(body)
	}

	if c.Method() != fiber.MethodGet && !isFragmentRequest(c) {
		return c.Redirect(r.path, fiber.StatusSeeOther)
	}

	parts := []render.Part{r.page}
	if isFragmentRequest(c) {
		parts = r.fragments
	}
	c.Status(status)
	c.Type("html", "utf-8")
	return s.renderer.RenderParts(c, parts...)
}

func wantsJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

func isFragmentRequest(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Get("HX-Request"), "true")
}

func errorMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// parseBody decodes a form or JSON body into out. An empty body leaves out untouched.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// parsePostID reads the :id route parameter as a positive post id.
func parsePostID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid post ID")
	}
	return int64(id), nil
}

type contentRequest struct {
	Content string `json:"content" form:"content"`
}

type usernameRequest struct {
	Username string `json:"username" form:"username"`
}

type respondRequest struct {
	Action string `json:"action" form:"action"`
}

type removeRequest struct {
	Confirm bool `json:"confirm" form:"confirm"`
}
