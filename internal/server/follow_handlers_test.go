package server

import (
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowAuthor(t *testing.T) {
	ts := newTestServer(t)
	leo := testutil.CreateUser(t, ts.db, "leo")
	ann := testutil.CreateUser(t, ts.db, "ann")

	resp := ts.get(t, "/profile/leo/follow/", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	resp = ts.get(t, "/profile/leo/follow/", ann)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profile/leo/", resp.Header.Get("Location"))
	assert.Equal(t, int64(1), testutil.Count(t, ts.db, &models.Follow{}, "user_id = ? AND author_id = ?", ann.ID, leo.ID))

	// browsers land on the profile again, JSON clients learn about the duplicate
	resp = ts.postForm(t, "/profile/leo/follow/", ann, nil)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	resp = ts.postJSON(t, "/profile/leo/follow/", ann, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, int64(1), testutil.Count(t, ts.db, &models.Follow{}, ""))

	resp = ts.postJSON(t, "/profile/ann/follow/", ann, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = ts.postJSON(t, "/profile/ghost/follow/", ann, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ts.get(t, "/follow/", ann)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUnfollowAuthor(t *testing.T) {
	ts := newTestServer(t)
	leo := testutil.CreateUser(t, ts.db, "leo")
	ann := testutil.CreateUser(t, ts.db, "ann")
	testutil.CreateFollow(t, ts.db, ann, leo)

	resp := ts.postJSON(t, "/profile/leo/unfollow/", ann, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, false, body["following"])
	assert.Zero(t, testutil.Count(t, ts.db, &models.Follow{}, ""))

	// removing a missing edge is fine
	resp = ts.get(t, "/profile/leo/unfollow/", ann)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profile/leo/", resp.Header.Get("Location"))
}
