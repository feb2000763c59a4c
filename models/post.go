package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Tags is a list of free-text tags stored as a JSON column.
type Tags []string

// Value serializes tags for storage. An empty list is stored as [] rather
// than NULL so JSON_CONTAINS filters behave uniformly.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan deserializes tags from their stored JSON form.
func (t *Tags) Scan(src interface{}) error {
	if src == nil {
		*t = Tags{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return errors.New("unsupported source type for tags")
	}
}

// Post represents a discussion item, optionally tied to a stock.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"index;not null" json:"authorId"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	StockCode *string   `gorm:"size:16;index" json:"stockCode"`
	StockName *string   `gorm:"size:64" json:"stockName"`
	Tags      Tags      `gorm:"type:json" json:"tags"`
	Views     int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"-"`
	Comments  []Comment `json:"-"`
	Likes     []Like    `json:"-"`
}
