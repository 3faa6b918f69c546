package server

import (
	"encoding/json"
	"errors"
	"log/slog"

	"fambam/internal/featureflags"
	"fambam/internal/middleware"
	"fambam/internal/models"
	"fambam/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type syncRequest struct {
	Type string `json:"type"`
}

// PostSyncUpgrade validates a websocket request for GET /api/ws/posts/:id
// before the upgrade happens.
func (s *Server) PostSyncUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	userID := middleware.CurrentUserID(c)
	if !s.featureFlags.Enabled(featureflags.RealtimeSync, userID) {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Realtime sync is not enabled",
			Code:  models.CodeNotFound,
		})
	}

	if _, err := s.postService.GetPost(c.UserContext(), postID); err != nil {
		return respondErr(c, err)
	}

	c.Locals("postID", postID)
	return c.Next()
}

// PostSyncHandler streams comment and reaction reloads for one post.
// @Summary Realtime post sync
// @Description WebSocket. Pushes comments_reloaded and reactions_reloaded messages whenever the post's comments or reactions change. Send {"type":"reload"} to force both.
// @Tags realtime
// @Param id path int true "Post ID"
// @Router /ws/posts/{id} [get]
func (s *Server) PostSyncHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		postID, _ := conn.Locals("postID").(uint)
		ctx := s.shutdownCtx

		client, err := s.postHub.Register(ctx, postID, userID, conn)
		if err != nil {
			reason := "Server busy"
			if errors.Is(err, notifications.ErrPostFull) {
				reason = "Too many viewers on this post"
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason))
			_ = conn.Close()
			return
		}

		sub, err := s.syncBridge.Watch(ctx, postID, userID, client)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "realtime subscribe failed",
				slog.Uint64("post_id", uint64(postID)),
				slog.String("error", err.Error()),
			)
			s.postHub.UnregisterClient(client)
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(cl *notifications.Client, raw []byte) {
			var req syncRequest
			if err := json.Unmarshal(raw, &req); err != nil || req.Type != "reload" {
				return
			}
			s.syncBridge.ReloadComments(ctx, postID, cl)
			s.syncBridge.ReloadReactions(ctx, postID, userID, cl)
		}

		go client.WritePump()

		s.syncBridge.ReloadComments(ctx, postID, client)
		s.syncBridge.ReloadReactions(ctx, postID, userID, client)

		client.ReadPump()

		sub.Unsubscribe()
		close(client.Send)
	})
}
