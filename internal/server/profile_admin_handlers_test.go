package server

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"
	"time"

	"fambam/internal/models"
	"fambam/internal/service"
	"fambam/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfileForm(t *testing.T) {
	ts := newTestServer(t, cookieProvider{})
	testutil.CreateProfile(t, ts.db, "kid")

	t.Run("display name required", func(t *testing.T) {
		req := multipartRequest(t, "/api/profile/update", map[string]string{"display_name": "  ", "bio": "hi"})
		path, q := redirectTarget(t, ts.do(t, asUser(req, "kid")))
		assert.Equal(t, "/profile/edit", path)
		assert.Equal(t, "Display name is required", q.Get("error"))
	})

	t.Run("oversized avatar", func(t *testing.T) {
		big := bytes.Repeat([]byte{0xff}, 6<<20)
		req := multipartRequest(t, "/api/profile/update", map[string]string{"display_name": "Kiddo"},
			upload{field: "avatar", name: "me.jpg", data: big})
		path, q := redirectTarget(t, ts.do(t, asUser(req, "kid")))
		assert.Equal(t, "/profile/edit", path)
		assert.Equal(t, "Avatar must be less than 5MB", q.Get("error"))
	})

	t.Run("success with avatar and cleared bio", func(t *testing.T) {
		req := multipartRequest(t, "/api/profile/update", map[string]string{"display_name": " Kiddo ", "bio": ""},
			upload{field: "avatar", name: "me.png", data: testutil.PNGBytes(t, 64, 64)})
		path, q := redirectTarget(t, ts.do(t, asUser(req, "kid")))
		assert.Equal(t, "/profile/edit", path)
		assert.Equal(t, "Profile updated successfully", q.Get("message"))

		var profile models.Profile
		require.NoError(t, ts.db.First(&profile, "id = ?", "kid").Error)
		assert.Equal(t, "Kiddo", profile.DisplayName)
		assert.Nil(t, profile.Bio)
		require.NotNil(t, profile.AvatarURL)
		assert.Contains(t, *profile.AvatarURL, "/media/kid/avatar-")
	})

	t.Run("anonymous goes to login", func(t *testing.T) {
		req := formRequest(http.MethodPost, "/api/profile/update", url.Values{"display_name": {"x"}})
		path, _ := redirectTarget(t, ts.do(t, req))
		assert.Equal(t, "/login", path)
	})
}

func TestCleanupOldPosts(t *testing.T) {
	ts := newTestServer(t, cookieProvider{})
	testutil.CreateProfile(t, ts.db, "gran")
	testutil.CreateProfile(t, ts.db, "kid")
	require.NoError(t, ts.db.Model(&models.Profile{}).Where("id = ?", "gran").Update("is_admin", true).Error)

	now := time.Now().UTC()
	testutil.CreatePost(t, ts.db, "kid", now.AddDate(0, -8, 0))
	testutil.CreatePost(t, ts.db, "kid", now.AddDate(0, -7, 0))
	recent := testutil.CreatePost(t, ts.db, "kid", now.AddDate(0, -1, 0))

	t.Run("members are refused", func(t *testing.T) {
		req := formRequest(http.MethodPost, "/api/admin/cleanup-old-posts", url.Values{})
		path, q := redirectTarget(t, ts.do(t, asUser(req, "kid")))
		assert.Equal(t, "/", path)
		assert.Equal(t, "Unauthorized", q.Get("error"))
	})

	t.Run("invalid months", func(t *testing.T) {
		req := formRequest(http.MethodPost, "/api/admin/cleanup-old-posts", url.Values{"months": {"0"}})
		path, q := redirectTarget(t, ts.do(t, asUser(req, "gran")))
		assert.Equal(t, "/admin", path)
		assert.Equal(t, "Months must be at least 1", q.Get("error"))
	})

	t.Run("default six months", func(t *testing.T) {
		req := formRequest(http.MethodPost, "/api/admin/cleanup-old-posts", url.Values{})
		path, q := redirectTarget(t, ts.do(t, asUser(req, "gran")))
		assert.Equal(t, "/admin", path)
		assert.Equal(t, "Deleted 2 posts", q.Get("message"))

		var ids []uint
		require.NoError(t, ts.db.Model(&models.Post{}).Pluck("id", &ids).Error)
		assert.Equal(t, []uint{recent.ID}, ids)
	})

	t.Run("nothing left", func(t *testing.T) {
		req := formRequest(http.MethodPost, "/api/admin/cleanup-old-posts", url.Values{"months": {"6"}})
		_, q := redirectTarget(t, ts.do(t, asUser(req, "gran")))
		assert.Equal(t, "No old posts to delete", q.Get("message"))
	})
}

func TestCleanupMessage(t *testing.T) {
	assert.Equal(t, "Deleted 8 posts (2 failed)", cleanupMessage(&service.PurgeResult{DeletedCount: 8, FailedCount: 2, Candidates: 10}))
	assert.Equal(t, "Deleted 3 posts", cleanupMessage(&service.PurgeResult{DeletedCount: 3, Candidates: 3}))
	assert.Equal(t, "No old posts to delete", cleanupMessage(&service.PurgeResult{}))
}
