package server

import (
	"mime/multipart"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postForm is the body of create and edit requests, sent either as a
// (multipart) form or as JSON.
type postForm struct {
	Text    string
	GroupID *uint
	Image   *multipart.FileHeader
}

func parsePostForm(c *fiber.Ctx) (*postForm, error) {
	if c.Is("json") {
		var req struct {
			Text  string `json:"text"`
			Group *uint  `json:"group"`
		}
		if err := c.BodyParser(&req); err != nil {
			return nil, models.NewValidationError("Invalid request body")
		}
		if req.Group != nil && *req.Group == 0 {
			req.Group = nil
		}
		return &postForm{Text: req.Text, GroupID: req.Group}, nil
	}

	groupID, err := parseGroupID(c.FormValue("group"))
	if err != nil {
		return nil, err
	}
	form := &postForm{Text: c.FormValue("text"), GroupID: groupID}
	if fh, err := c.FormFile("image"); err == nil && fh.Size > 0 {
		form.Image = fh
	}
	return form, nil
}

// openImage turns the uploaded file into the service's upload type. The
// returned close func is never nil.
func openImage(fh *multipart.FileHeader) (*service.ImageUpload, func(), error) {
	if fh == nil {
		return nil, func() {}, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, models.NewValidationError("unreadable image upload")
	}
	return &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

// CreatePostForm handles GET /create/
// @Summary Data for the new post form
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{groups=[]models.Group,max_image_bytes=int}
// @Failure 401 {object} models.ErrorResponse
// @Router /create/ [get]
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	if !middleware.CurrentIdentity(c).Authenticated() {
		return s.respondError(c, models.NewAuthenticationRequiredError())
	}
	groups, err := s.groupService.List(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"groups":          groups,
		"max_image_bytes": int64(s.config.ImageMaxUploadSizeMB) << 20,
	})
}

// CreatePost handles POST /create/
// @Summary Create a post
// @Description Browsers are redirected to their profile; JSON clients get the post.
// @Tags posts
// @Accept multipart/form-data,json
// @Produce json
// @Security BearerAuth
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID"
// @Param image formData file false "Image attachment"
// @Success 201 {object} models.Post
// @Success 303
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /create/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	who := middleware.CurrentIdentity(c)
	if !who.Authenticated() {
		return s.respondError(c, models.NewAuthenticationRequiredError())
	}

	form, err := parsePostForm(c)
	if err != nil {
		return s.respondError(c, err)
	}
	img, closeImage, err := openImage(form.Image)
	if err != nil {
		return s.respondError(c, err)
	}
	defer closeImage()

	post, err := s.postService.Create(c.UserContext(), who, service.CreatePostInput{
		Text:    form.Text,
		GroupID: form.GroupID,
		Image:   img,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return redirectOrJSON(c, profilePath(who.Username), fiber.StatusCreated, post)
}

// EditPostForm handles GET /posts/:id/edit/
// @Summary Data for the edit form
// @Description Only the author may edit; browsers of other users are sent to the post.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{post=models.Post,groups=[]models.Group}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/edit/ [get]
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetForEdit(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return s.respondEditError(c, id, err)
	}
	groups, err := s.groupService.List(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"post":   post,
		"groups": groups,
	})
}

// EditPost handles POST /posts/:id/edit/
// @Summary Edit a post
// @Tags posts
// @Accept multipart/form-data,json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID, empty to detach"
// @Param image formData file false "Replacement image"
// @Success 200 {object} models.Post
// @Success 303
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/edit/ [post]
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	who := middleware.CurrentIdentity(c)
	if !who.Authenticated() {
		return s.respondError(c, models.NewAuthenticationRequiredError())
	}

	form, err := parsePostForm(c)
	if err != nil {
		return s.respondError(c, err)
	}
	img, closeImage, err := openImage(form.Image)
	if err != nil {
		return s.respondError(c, err)
	}
	defer closeImage()

	post, err := s.postService.Edit(c.UserContext(), who, service.EditPostInput{
		PostID:  id,
		Text:    form.Text,
		GroupID: form.GroupID,
		Image:   img,
	})
	if err != nil {
		return s.respondEditError(c, id, err)
	}
	return redirectOrJSON(c, postPath(id), fiber.StatusOK, post)
}

// respondEditError sends browsers that may not edit the post back to it.
func (s *Server) respondEditError(c *fiber.Ctx, id uint, err error) error {
	if models.IsCode(err, models.CodeForbidden) && !wantsJSON(c) {
		return c.Redirect(postPath(id), fiber.StatusFound)
	}
	return s.respondError(c, err)
}

// DeletePost handles POST /posts/:id/delete/
// @Summary Delete a post
// @Description Removes the post, its comments and its image. Author only.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Success 303
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/delete/ [post]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	who := middleware.CurrentIdentity(c)
	if err := s.postService.Delete(c.UserContext(), who, id); err != nil {
		return s.respondError(c, err)
	}
	return redirectOrJSON(c, profilePath(who.Username), fiber.StatusOK, fiber.Map{
		"message": "Post deleted successfully",
	})
}

// AddComment handles POST /posts/:id/comment
// @Summary Comment on a post
// @Tags posts
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param text formData string true "Comment text"
// @Success 201 {object} models.Comment
// @Success 303
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comment [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	who := middleware.CurrentIdentity(c)
	if !who.Authenticated() {
		return s.respondError(c, models.NewAuthenticationRequiredError())
	}

	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return s.respondError(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.Add(c.UserContext(), who, id, req.Text)
	if err != nil {
		return s.respondError(c, err)
	}
	return redirectOrJSON(c, postPath(id), fiber.StatusCreated, comment)
}
