package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fambam/internal/middleware"
	"fambam/internal/models"
	"fambam/internal/notifications"
	"fambam/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves ts on a loopback port and returns its ws:// base URL.
func (ts *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() { _ = ts.app.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func dialSync(t *testing.T, base string, postID uint, userID string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Cookie", middleware.AccessCookie+"="+userID)

	conn, resp, err := websocket.DefaultDialer.Dial(base+"/api/ws/posts/"+itoa(postID), header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type syncFrame struct {
	Type    string          `json:"type"`
	PostID  uint            `json:"post_id"`
	Payload json.RawMessage `json:"payload"`
}

func readFrame(t *testing.T, conn *websocket.Conn) syncFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f syncFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readUntil skips frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) syncFrame {
	t.Helper()
	for i := 0; i < 10; i++ {
		if f := readFrame(t, conn); f.Type == typ {
			return f
		}
	}
	t.Fatalf("no %s frame received", typ)
	return syncFrame{}
}

func TestPostSync_ReloadsOnChange(t *testing.T) {
	ts := newTestServer(t, cookieProvider{})
	testutil.CreateProfile(t, ts.db, "mom")
	testutil.CreateProfile(t, ts.db, "kid")
	post := testutil.CreatePost(t, ts.db, "mom", time.Now().UTC())

	conn := dialSync(t, ts.listen(t), post.ID, "kid")

	first := readFrame(t, conn)
	assert.Equal(t, notifications.TypeCommentsReloaded, first.Type)
	assert.Equal(t, post.ID, first.PostID)
	assert.JSONEq(t, `[]`, string(first.Payload))
	assert.Equal(t, notifications.TypeReactionsReloaded, readFrame(t, conn).Type)

	assert.Eventually(t, func() bool { return ts.srv.postHub.Viewers(post.ID) == 1 }, time.Second, 10*time.Millisecond)

	_, err := ts.srv.commentService.AddComment(context.Background(), post.ID, "mom", "dinner at six")
	require.NoError(t, err)

	f := readUntil(t, conn, notifications.TypeCommentsReloaded)
	var comments []struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "dinner at six", comments[0].Content)

	_, err = ts.srv.reactionService.SetReaction(context.Background(), post.ID, "mom", "laugh")
	require.NoError(t, err)

	f = readUntil(t, conn, notifications.TypeReactionsReloaded)
	var summary struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &summary))
	assert.Equal(t, 1, summary.Total)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "reload"}))
	assert.Equal(t, notifications.TypeCommentsReloaded, readFrame(t, conn).Type)

	_ = conn.Close()
	assert.Eventually(t, func() bool { return ts.srv.postHub.Viewers(post.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
	channel := models.CommentsChannel(post.ID)
	assert.Eventually(t, func() bool { return ts.mr.PubSubNumSub(channel)[channel] == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPostSyncUpgrade_Rejections(t *testing.T) {
	ts := newTestServer(t, cookieProvider{})
	testutil.CreateProfile(t, ts.db, "mom")

	resp := ts.do(t, asUser(httptest.NewRequest(http.MethodGet, "/api/ws/posts/1", nil), "mom"))
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	upgrade := func(path string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		req.Header.Set("Sec-WebSocket-Version", "13")
		req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
		return req
	}

	resp = ts.do(t, upgrade("/api/ws/posts/42"))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, asUser(upgrade("/api/ws/posts/42"), "mom"))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPostSyncUpgrade_FlagOff(t *testing.T) {
	cfg := testConfig(t)
	cfg.FeatureFlags = "realtime_sync=off"
	ts := newTestServerWithConfig(t, cfg, cookieProvider{})
	testutil.CreateProfile(t, ts.db, "mom")
	post := testutil.CreatePost(t, ts.db, "mom", time.Now().UTC())

	req := httptest.NewRequest(http.MethodGet, "/api/ws/posts/"+itoa(post.ID), nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp := ts.do(t, asUser(req, "mom"))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
