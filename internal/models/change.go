package models

import "fmt"

// Change event kinds, as the store reports them.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Tables whose changes are broadcast to post viewers.
const (
	TableComments  = "comments"
	TableReactions = "post_reactions"
	TablePosts     = "posts"
)

// ChangeEvent describes one row change under a post.
type ChangeEvent struct {
	Table  string `json:"table"`
	Event  string `json:"event"`
	PostID uint   `json:"post_id"`
	RowID  uint   `json:"row_id,omitempty"`
}

// Channel is the pub/sub channel the event is published on. Post events
// share the comments channel.
func (e ChangeEvent) Channel() string {
	switch e.Table {
	case TableReactions:
		return ReactionsChannel(e.PostID)
	default:
		return CommentsChannel(e.PostID)
	}
}

// CommentsChannel carries comment changes for one post.
func CommentsChannel(postID uint) string {
	return fmt.Sprintf("post:%d:comments", postID)
}

// ReactionsChannel carries reaction changes for one post.
func ReactionsChannel(postID uint) string {
	return fmt.Sprintf("post:%d:reactions", postID)
}

// EventForTransition maps a reaction transition to the row event it causes.
func EventForTransition(t ReactionTransition) string {
	switch t {
	case TransitionInsert:
		return EventInsert
	case TransitionRemove:
		return EventDelete
	default:
		return EventUpdate
	}
}
