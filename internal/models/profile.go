// Package models contains data structures for the application's domain models.
package models

import "time"

// Profile is the public record of a family member. Its ID is the identity id
// issued by the identity provider.
type Profile struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `gorm:"type:text" json:"bio"`
	IsAdmin     bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Account holds the credentials the live identity provider checks on sign-in.
type Account struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
