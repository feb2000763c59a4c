package models

import "time"

// Like marks a user's endorsement of a post. The (post_id, user_id) pair is
// unique; the index is the safety net against concurrent double inserts.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"postId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
