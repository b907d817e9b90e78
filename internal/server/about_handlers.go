package server

import "github.com/gofiber/fiber/v2"

type aboutPage struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Links []string `json:"links,omitempty"`
}

var (
	aboutAuthor = aboutPage{
		Title: "About the author",
		Body:  "Inkwell is a small blogging platform: write posts, gather them in groups, comment and follow the authors you like.",
	}
	aboutTech = aboutPage{
		Title: "Technologies",
		Body:  "Go with Fiber, GORM on PostgreSQL, Redis for the page cache and live events, S3 or local disk for images.",
		Links: []string{"/swagger/index.html", "/metrics"},
	}
)

// AboutAuthor handles GET /about/author/
// @Summary About the author
// @Tags about
// @Produce json
// @Success 200 {object} object{title=string,body=string}
// @Router /about/author/ [get]
func (s *Server) AboutAuthor(c *fiber.Ctx) error {
	return c.JSON(aboutAuthor)
}

// AboutTech handles GET /about/tech/
// @Summary About the technologies
// @Tags about
// @Produce json
// @Success 200 {object} object{title=string,body=string,links=[]string}
// @Router /about/tech/ [get]
func (s *Server) AboutTech(c *fiber.Ctx) error {
	return c.JSON(aboutTech)
}
