package notifications

import (
	"context"
	"errors"
	"sync"

	"fambam/internal/middleware"
	"fambam/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerPost = 200
	maxTotalConns   = 5000
)

var (
	ErrHubFull  = errors.New("server connection limit reached")
	ErrPostFull = errors.New("post connection limit reached")
)

// PostHub tracks the websocket viewers of every open post.
type PostHub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	log        *observability.WSLogger
}

// NewPostHub creates an empty hub.
func NewPostHub() *PostHub {
	return &PostHub{
		conns: make(map[uint]map[*Client]struct{}),
		log:   observability.NewWSLogger("post"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *PostHub) Name() string { return "post hub" }

// Register adds a viewer of postID.
func (h *PostHub) Register(ctx context.Context, postID uint, userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrHubFull
	}
	m, ok := h.conns[postID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[postID] = m
	}
	if len(m) >= maxConnsPerPost {
		h.mu.Unlock()
		return nil, ErrPostFull
	}

	client := NewClient(h, conn, userID, postID)
	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	middleware.ActiveWebSockets.Inc()
	h.log.LogConnect(ctx, userID, postID)
	return client, nil
}

// UnregisterClient removes c. Unknown clients are ignored.
func (h *PostHub) UnregisterClient(c *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[c.PostID]; ok {
		if _, exists := m[c]; exists {
			delete(m, c)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.conns, c.PostID)
		}
	}
	h.mu.Unlock()

	if removed {
		middleware.ActiveWebSockets.Dec()
		h.log.LogDisconnect(context.Background(), c.UserID, c.PostID, "closed")
	}
}

// Viewers reports how many clients watch postID.
func (h *PostHub) Viewers(postID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[postID])
}

// Shutdown closes every connection.
func (h *PostHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for postID, clients := range h.conns {
		for client := range clients {
			middleware.ActiveWebSockets.Dec()
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				h.log.LogError(context.Background(), client.UserID, postID, err, "close")
			}
			_ = client.Conn.Close()
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
