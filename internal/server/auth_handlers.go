package server

import (
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type credentials struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Next      string `json:"next" form:"next"`
}

// Signup handles POST /auth/signup/
// @Summary User signup
// @Description Register a new user account and start a session
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body object{username=string,email=string,password=string,first_name=string,last_name=string} true "Signup request"
// @Success 201 {object} object{token=string,expires_at=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup/ [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Signup(c.UserContext(), service.SignupInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return s.startSession(c, user, fiber.StatusCreated, req.Next)
}

// Login handles POST /auth/login/
// @Summary User login
// @Description Browsers are redirected to the local path in next, JSON clients get the token.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body object{username=string,password=string,next=string} true "Login request"
// @Success 200 {object} object{token=string,expires_at=string,user=models.User}
// @Success 303
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}

	user, err := s.userService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.startSession(c, user, fiber.StatusOK, req.Next)
}

// Logout handles POST /auth/logout/
// @Summary User logout
// @Description Clears the session cookie. Bearer tokens simply expire.
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Success 303
// @Router /auth/logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return redirectOrJSON(c, "/", fiber.StatusOK, fiber.Map{
		"message": "Logged out",
	})
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User, status int, next string) error {
	token, expires, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return redirectOrJSON(c, safeNext(next), status, fiber.Map{
		"token":      token,
		"expires_at": expires,
		"user":       user,
	})
}
