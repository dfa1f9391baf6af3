package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that may sign in. Only authors pass the identity gate for protected
// mutations. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id" bson:"_id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username" bson:"username"`
	PasswordHash string    `gorm:"size:255" json:"-" bson:"password_hash"`
	Author       bool      `gorm:"not null" json:"author" bson:"author"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
