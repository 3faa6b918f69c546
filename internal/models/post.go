package models

import (
	"time"

	"gorm.io/datatypes"
)

// MaxPostMedia is the most images a single post may carry.
const MaxPostMedia = 4

// Post is a feed entry. MediaURLs keeps upload order.
type Post struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	UserID    string                      `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Author    Profile                     `gorm:"foreignKey:UserID;references:ID" json:"author"`
	Content   string                      `gorm:"type:text;not null;default:''" json:"content"`
	MediaURLs datatypes.JSONSlice[string] `gorm:"column:media_urls" json:"media_urls"`
	Comments  []Comment                   `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Reactions []Reaction                  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time                   `gorm:"index" json:"created_at"`
}

// Media returns the media refs as a plain slice.
func (p *Post) Media() []string {
	return []string(p.MediaURLs)
}
