package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateGroup handles POST /admin/groups
// @Summary Create a group
// @Tags admin
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,slug=string,description=string} true "Group"
// @Success 201 {object} models.Group
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/groups [post]
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	who := middleware.CurrentIdentity(c)
	if !who.Authenticated() {
		return s.respondError(c, models.NewAuthenticationRequiredError())
	}

	var req struct {
		Title       string `json:"title" form:"title"`
		Slug        string `json:"slug" form:"slug"`
		Description string `json:"description" form:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.Create(c.UserContext(), who, service.CreateGroupInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// DeleteGroup handles DELETE /admin/groups/:id
// @Summary Delete a group
// @Description The group's posts stay, detached from any group.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} object{detached_posts=int}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/groups/{id} [delete]
func (s *Server) DeleteGroup(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	detached, err := s.groupService.Delete(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"detached_posts": detached})
}

// DeleteUser handles DELETE /admin/users/:id
// @Summary Delete a user
// @Description Removes the user with their posts, comments and follow edges. Users may delete themselves.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{posts=int,comments=int,follows=int}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.userService.Delete(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts":    res.Posts,
		"comments": res.Comments,
		"follows":  res.Follows,
	})
}
