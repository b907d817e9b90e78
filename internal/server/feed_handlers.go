package server

import (
	"strconv"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// cacheHeader tells clients whether the listing came from the page cache.
const cacheHeader = "X-Page-Cache"

// Index handles GET /
// @Summary Global feed
// @Description Newest posts of every author. Each existing page is cached for PAGE_CACHE_TTL_SECONDS and dropped on every post write. Pages past the last one are never cached.
// @Tags feeds
// @Produce json
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} models.Page[models.Post]
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	page := pageParam(c)
	ctx := c.UserContext()
	key := cache.Key{Route: cache.RouteIndex, Variant: strconv.Itoa(page)}

	// only pages up to the last one get an entry, so arbitrary ?page= values
	// cannot grow the cache
	body, cached, err := s.pages.FetchIf(ctx, key, func() ([]byte, bool, error) {
		feed, err := s.feedService.ListGlobal(ctx, page)
		if err != nil {
			return nil, false, err
		}
		raw, err := c.App().Config().JSONEncoder(feed)
		return raw, feed.Number <= feed.LastPage, err
	})
	if err != nil {
		return s.respondError(c, err)
	}

	if cached {
		c.Set(cacheHeader, "HIT")
	} else {
		c.Set(cacheHeader, "MISS")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// GroupPosts handles GET /group/:slug/
// @Summary Group feed
// @Tags feeds
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} service.GroupFeed
// @Failure 404 {object} models.ErrorResponse
// @Router /group/{slug}/ [get]
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	feed, err := s.feedService.ListGroup(c.UserContext(), c.Params("slug"), pageParam(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(feed)
}

// Profile handles GET /profile/:username/
// @Summary Author profile
// @Description The author's posts, post count, follower count and whether the caller follows them.
// @Tags feeds
// @Produce json
// @Param username path string true "Username"
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} service.ProfileFeed
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/ [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	feed, err := s.feedService.ListProfile(c.UserContext(), middleware.CurrentIdentity(c), c.Params("username"), pageParam(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(feed)
}

// PostDetail handles GET /posts/:id/
// @Summary Post with comments
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.PostDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/ [get]
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.feedService.GetPost(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(detail)
}

// FollowIndex handles GET /follow/
// @Summary Follow feed
// @Description Posts by the authors the caller follows, never the caller's own.
// @Tags feeds
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} models.Page[models.Post]
// @Failure 401 {object} models.ErrorResponse
// @Router /follow/ [get]
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	feed, err := s.feedService.ListFollow(c.UserContext(), middleware.CurrentIdentity(c), pageParam(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(feed)
}
