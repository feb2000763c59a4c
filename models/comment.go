package models

import "time"

// Comment represents a reply to a post. A nil ParentID marks a top-level
// comment; replies reference a top-level comment on the same post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"postId"`
	AuthorID  uint      `gorm:"index;not null" json:"authorId"`
	ParentID  *uint     `gorm:"index" json:"parentId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"-"`
}
