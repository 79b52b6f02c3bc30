package models

import "time"

// Post is a feed entry with a stored image.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"not null" json:"content"`
	ImageURL  string    `gorm:"not null" json:"imageUrl"`
	CreatorID uint      `gorm:"not null;index" json:"creatorId"`
	Creator   *Creator  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Creator is the public projection of a post's author.
type Creator struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// TableName points the Creator projection at the users table.
func (Creator) TableName() string { return "users" }

// PostSummary is the post shape carried by realtime events.
type PostSummary struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl"`
	Creator   Creator   `json:"creator"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary projects p for broadcast.
func (p *Post) Summary() PostSummary {
	s := PostSummary{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		Creator:   Creator{ID: p.CreatorID},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Creator != nil {
		s.Creator = *p.Creator
	}
	return s
}
