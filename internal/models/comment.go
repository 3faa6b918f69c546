package models

import "time"

// MaxCommentLength caps comment content, counted in runes.
const MaxCommentLength = 2000

// Comment is a reply attached to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    string    `gorm:"type:varchar(64);not null" json:"user_id"`
	Author    Profile   `gorm:"foreignKey:UserID;references:ID" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
