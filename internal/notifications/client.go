package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"fambam/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Viewers only ever send small control messages.
	maxMessageSize = 1024

	sendBuffer = 64
)

// TypeResync tells a viewer that pushes were dropped and both lists should
// be fetched again.
const TypeResync = "resync"

// WSHub is the registry a Client reports to when it goes away.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one viewer's websocket on one post.
type Client struct {
	Hub  WSHub
	Conn *websocket.Conn

	// Send holds encoded SyncMessages waiting to be written.
	Send chan []byte

	UserID string
	PostID uint

	// IncomingHandler, when set, receives every message the viewer sends.
	IncomingHandler func(*Client, []byte)

	dropped atomic.Bool
	log     *observability.WSLogger
}

func NewClient(hub WSHub, conn *websocket.Conn, userID string, postID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		PostID: postID,
		Send:   make(chan []byte, sendBuffer),
		log:    observability.NewWSLogger(hub.Name()),
	}
}

// ReadPump reads viewer messages until the socket closes, then unregisters
// the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.LogError(context.Background(), c.UserID, c.PostID, err, "read")
			}
			return
		}
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump writes queued messages and pings until Send is closed or a
// write fails. A reload carries the whole list, so of several queued
// messages of one type only the newest is written.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case first, ok := <-c.Send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			batch, closed := coalesce(first, c.Send)
			if c.dropped.Swap(false) {
				batch = append(batch, c.resyncNotice())
			}
			for _, msg := range batch {
				if err := c.write(websocket.TextMessage, msg); err != nil {
					c.log.LogError(context.Background(), c.UserID, c.PostID, err, "write")
					return
				}
			}
			if closed {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

func (c *Client) resyncNotice() []byte {
	b, _ := json.Marshal(SyncMessage{Type: TypeResync, PostID: c.PostID})
	return b
}

// TrySend queues message without blocking. A full buffer drops the message
// and the viewer gets a resync notice with the next batch.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		c.dropped.Store(true)
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
	}
}

// coalesce drains what is already queued behind first. Messages of a type
// seen earlier in the batch replace that entry in place; untyped messages
// are kept as they are.
func coalesce(first []byte, queue <-chan []byte) (batch [][]byte, closed bool) {
	batch = [][]byte{first}
	slot := make(map[string]int)
	if t := messageType(first); t != "" {
		slot[t] = 0
	}

	for {
		select {
		case msg, ok := <-queue:
			if !ok {
				return batch, true
			}
			t := messageType(msg)
			if i, seen := slot[t]; seen {
				batch[i] = msg
				continue
			}
			if t != "" {
				slot[t] = len(batch)
			}
			batch = append(batch, msg)
		default:
			return batch, false
		}
	}
}

func messageType(msg []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(msg, &head) != nil {
		return ""
	}
	return head.Type
}
