package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// FollowAuthor handles GET/POST /profile/:username/follow/
// @Summary Follow an author
// @Description Browsers always land back on the profile, also when the edge already exists or the author is the caller.
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} object{author=string,following=bool}
// @Success 303
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /profile/{username}/follow/ [post]
func (s *Server) FollowAuthor(c *fiber.Ctx) error {
	username := c.Params("username")
	author, err := s.followService.Follow(c.UserContext(), middleware.CurrentIdentity(c), username)
	if err != nil {
		if !wantsJSON(c) && (models.IsCode(err, models.CodeConflict) || models.IsCode(err, models.CodeValidation)) {
			return c.Redirect(profilePath(username), fiber.StatusSeeOther)
		}
		return s.respondError(c, err)
	}
	return redirectOrJSON(c, profilePath(author.Username), fiber.StatusOK, fiber.Map{
		"author":    author.Username,
		"following": true,
	})
}

// UnfollowAuthor handles GET/POST /profile/:username/unfollow/
// @Summary Unfollow an author
// @Description Removing an edge that does not exist succeeds.
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} object{author=string,following=bool}
// @Success 303
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/unfollow/ [post]
func (s *Server) UnfollowAuthor(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), middleware.CurrentIdentity(c), c.Params("username"))
	if err != nil {
		return s.respondError(c, err)
	}
	return redirectOrJSON(c, profilePath(author.Username), fiber.StatusOK, fiber.Map{
		"author":    author.Username,
		"following": false,
	})
}
