package models

import (
	"strconv"
	"strings"
	"time"
)

// ReactionKind is one of the fixed reaction types.
type ReactionKind string

const (
	ReactionNone      ReactionKind = ""
	ReactionLike      ReactionKind = "like"
	ReactionLove      ReactionKind = "love"
	ReactionLaugh     ReactionKind = "laugh"
	ReactionCelebrate ReactionKind = "celebrate"
)

// ReactionKinds lists the kinds in display order.
var ReactionKinds = []ReactionKind{ReactionLike, ReactionLove, ReactionLaugh, ReactionCelebrate}

var reactionEmoji = map[ReactionKind]string{
	ReactionLike:      "❤️",
	ReactionLove:      "🥰",
	ReactionLaugh:     "😂",
	ReactionCelebrate: "🎉",
}

// Valid reports whether k is a known kind.
func (k ReactionKind) Valid() bool {
	_, ok := reactionEmoji[k]
	return ok
}

// Emoji returns the display glyph for k.
func (k ReactionKind) Emoji() string {
	return reactionEmoji[k]
}

// Reaction is the single reaction a user holds on a post.
type Reaction struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	PostID    uint         `gorm:"not null;uniqueIndex:idx_post_reactions_post_user" json:"post_id"`
	UserID    string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_post_reactions_post_user" json:"user_id"`
	Author    Profile      `gorm:"foreignKey:UserID;references:ID" json:"author"`
	Kind      ReactionKind `gorm:"column:reaction_type;type:varchar(16);not null" json:"reaction_type"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName pins the table name.
func (Reaction) TableName() string {
	return "post_reactions"
}

// ReactionTransition names the store change a reaction request needs.
type ReactionTransition string

const (
	TransitionInsert ReactionTransition = "insert"
	TransitionUpdate ReactionTransition = "update"
	TransitionRemove ReactionTransition = "remove"
)

// NextReaction applies a request for kind requested to the current state.
// Asking for the kind already held cancels it; asking for another kind
// replaces it in place.
func NextReaction(current, requested ReactionKind) (ReactionKind, ReactionTransition) {
	switch current {
	case ReactionNone:
		return requested, TransitionInsert
	case requested:
		return ReactionNone, TransitionRemove
	default:
		return requested, TransitionUpdate
	}
}

// ReactionCount is the tally for one kind.
type ReactionCount struct {
	Kind  ReactionKind `json:"type"`
	Emoji string       `json:"emoji"`
	Count int          `json:"count"`
}

// MaxReactionNames is how many reacting names a summary spells out.
const MaxReactionNames = 3

// ReactionSummary is what the feed shows under a post.
type ReactionSummary struct {
	PostID         uint            `json:"post_id"`
	Total          int             `json:"total"`
	Counts         []ReactionCount `json:"counts"`
	Names          []string        `json:"names"`
	More           int             `json:"more"`
	ViewerReaction ReactionKind    `json:"viewer_reaction,omitempty"`
}

// Label renders the "A, B, C +N more" line.
func (s ReactionSummary) Label() string {
	out := strings.Join(s.Names, ", ")
	if s.More > 0 {
		out += " +" + strconv.Itoa(s.More) + " more"
	}
	return out
}
