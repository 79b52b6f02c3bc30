// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account that can author posts.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Email      string     `gorm:"uniqueIndex;not null" json:"email"`
	Password   string     `gorm:"not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	Status     string     `gorm:"not null;default:'I am new!'" json:"status"`
	OwnedPosts []UserPost `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// DefaultStatus is assigned to new accounts.
const DefaultStatus = "I am new!"

// UserPost is one entry of a user's ordered owned-post list. Position follows
// the auto-increment ID, so appends always land at the end.
type UserPost struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_posts_user_post" json:"userId"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_posts_user_post" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostIDs returns the owned post identifiers in list order.
func (u *User) PostIDs() []uint {
	ids := make([]uint, 0, len(u.OwnedPosts))
	for _, p := range u.OwnedPosts {
		ids = append(ids, p.PostID)
	}
	return ids
}
