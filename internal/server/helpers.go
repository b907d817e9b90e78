package server

import (
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// statusByCode maps AppError codes to HTTP statuses.
var statusByCode = map[string]int{
	models.CodeValidation:     fiber.StatusBadRequest,
	models.CodeConflict:       fiber.StatusConflict,
	models.CodeNotFound:       fiber.StatusNotFound,
	models.CodeForbidden:      fiber.StatusForbidden,
	models.CodeAuthentication: fiber.StatusUnauthorized,
	models.CodeInternal:       fiber.StatusInternalServerError,
}

// mapServiceError returns the HTTP status for err. Errors without an
// AppError code are internal.
func mapServiceError(err error) int {
	if status, ok := statusByCode[models.ErrorCode(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// respondError writes err as a JSON error body. Browser clients that need a
// session are sent to the login page instead.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	code := models.ErrorCode(err)

	if code == models.CodeAuthentication {
		next := c.OriginalURL()
		if !wantsJSON(c) {
			return c.Redirect(s.loginURL(next), fiber.StatusFound)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Error: "Authentication required",
			Code:  code,
			Next:  next,
		})
	}

	status := mapServiceError(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

func (s *Server) loginURL(next string) string {
	login := s.config.LoginURL
	if login == "" {
		login = "/auth/login/"
	}
	return login + "?next=" + url.QueryEscape(next)
}

// wantsJSON reports whether the client asked for a JSON answer instead of
// the redirect a browser form submission gets.
func wantsJSON(c *fiber.Ctx) bool {
	accept := c.Get(fiber.HeaderAccept)
	if strings.Contains(accept, fiber.MIMEApplicationJSON) {
		return true
	}
	return c.Is("json")
}

// redirectOrJSON answers a successful write: browsers follow the redirect,
// JSON clients get status and body.
func redirectOrJSON(c *fiber.Ctx, location string, status int, body any) error {
	if wantsJSON(c) {
		return c.Status(status).JSON(body)
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 404 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		_ = s.NotFound(c)
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// pageParam reads the 1-based page number; anything unparsable means page 1.
func pageParam(c *fiber.Ctx) int {
	return models.ClampPage(c.QueryInt("page", 1))
}

// parseGroupID reads an optional group reference from a form value.
func parseGroupID(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil, models.NewValidationError("group must be a group id")
	}
	v := uint(id)
	return &v, nil
}

// safeNext accepts only local paths, so a login can't bounce to another site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

func profilePath(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func postPath(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}
