package store

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/stockbbs/stockbbs/models"
)

// Sentinel errors mapped to HTTP statuses at the controller boundary.
var (
	ErrNotFound  = errors.New("record not found")
	ErrForbidden = errors.New("operation not permitted")
	ErrConflict  = errors.New("record already exists")
)

// ValidationError reports malformed or empty required input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validation(msg string) error { return &ValidationError{Msg: msg} }

// Sort orders for post listings.
const (
	SortNewest  = "newest"
	SortHottest = "hottest"
)

// PostFilter is an exact-match AND filter; nil fields are unconstrained.
type PostFilter struct {
	StockCode *string
	Tag       *string
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes the derived totalPages field.
func NewPagination(page, limit int, total int64) Pagination {
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// Counts carries the live comment/like aggregates of a post.
type Counts struct {
	Comments int64 `json:"commentCount"`
	Likes    int64 `json:"likeCount"`
}

// PostInput is the validated payload for creating a post.
type PostInput struct {
	AuthorID  uint
	Title     string
	Content   string
	StockCode string
	StockName string
	Tags      []string
}

// Store is the persistence contract for the post/comment/like aggregate.
// Implementations must keep the (post, user) like pair unique and perform
// view increments atomically on the storage side.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id uint, name, avatar *string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)

	// Posts
	CreatePost(ctx context.Context, in PostInput) (*models.Post, error)
	PostByID(ctx context.Context, id uint) (*models.Post, error)
	IncrementViews(ctx context.Context, id uint) error
	ListPosts(ctx context.Context, filter PostFilter, sort string, page, limit int) ([]models.Post, int64, error)
	DeletePost(ctx context.Context, id, requesterID uint) error

	// Comments
	CreateComment(ctx context.Context, postID, authorID uint, content string, parentID *uint) (*models.Comment, error)
	TopLevelComments(ctx context.Context, postID uint) ([]models.Comment, error)
	RepliesByParentIDs(ctx context.Context, parentIDs []uint) (map[uint][]models.Comment, error)

	// Likes
	LikeStatus(ctx context.Context, postID, userID uint) (bool, error)
	ToggleLike(ctx context.Context, postID, userID uint) (bool, error)

	// Aggregates
	CountsByPostIDs(ctx context.Context, postIDs []uint) (map[uint]Counts, error)
	Totals(ctx context.Context) (users, posts, comments int64, err error)
}

// normalizePostInput trims required text, drops empty tags, and maps blank
// stock fields to NULL. Returns a ValidationError when title or content is
// empty after trimming.
func normalizePostInput(in PostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, validation("title and content cannot be empty")
	}

	post := &models.Post{
		AuthorID: in.AuthorID,
		Title:    title,
		Content:  content,
		Tags:     models.Tags{},
	}
	if code := strings.TrimSpace(in.StockCode); code != "" {
		post.StockCode = &code
	}
	if name := strings.TrimSpace(in.StockName); name != "" {
		post.StockName = &name
	}
	for _, tag := range in.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			post.Tags = append(post.Tags, tag)
		}
	}
	return post, nil
}

// normalizeComment validates comment content.
func normalizeComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", validation("comment content cannot be empty")
	}
	return content, nil
}
