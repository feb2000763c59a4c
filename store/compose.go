package store

import (
	"context"
	"time"

	"github.com/stockbbs/stockbbs/models"
)

// Author is the minimal projection of a user attached to posts and
// comments. Credential fields never appear here.
type Author struct {
	ID     uint    `json:"id"`
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

// PostView is a post assembled with its author projection and live counts.
type PostView struct {
	models.Post
	Author Author `json:"author"`
	Counts
}

// CommentView is a comment with its author and, for top-level comments, the
// attached replies oldest-first.
type CommentView struct {
	models.Comment
	Author  Author        `json:"author"`
	Replies []CommentView `json:"replies,omitempty"`
}

func authorOf(users map[uint]models.User, id uint) Author {
	author := Author{ID: id}
	if user, ok := users[id]; ok {
		author.Name = user.Name
		author.Avatar = user.Avatar
	}
	return author
}

// ComposePosts assembles views for a page of posts. Authors and counts are
// loaded with batched queries so the query count does not grow with the
// page size.
func ComposePosts(ctx context.Context, s Store, posts []models.Post) ([]PostView, error) {
	views := make([]PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	authorIDs := make([]uint, 0, len(posts))
	postIDs := make([]uint, 0, len(posts))
	for _, post := range posts {
		authorIDs = append(authorIDs, post.AuthorID)
		postIDs = append(postIDs, post.ID)
	}

	users, err := s.UsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	counts, err := s.CountsByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	for _, post := range posts {
		views = append(views, PostView{
			Post:   post,
			Author: authorOf(users, post.AuthorID),
			Counts: counts[post.ID],
		})
	}
	return views, nil
}

// ComposePost assembles the detail view of a single post.
func ComposePost(ctx context.Context, s Store, post *models.Post) (*PostView, error) {
	views, err := ComposePosts(ctx, s, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ComposeComments assembles the two-level comment tree of a post: top-level
// comments newest-first, each carrying its replies oldest-first. Replies and
// authors are fetched in single batched calls.
func ComposeComments(ctx context.Context, s Store, top []models.Comment) ([]CommentView, error) {
	views := make([]CommentView, 0, len(top))
	if len(top) == 0 {
		return views, nil
	}

	parentIDs := make([]uint, 0, len(top))
	for _, comment := range top {
		parentIDs = append(parentIDs, comment.ID)
	}
	replies, err := s.RepliesByParentIDs(ctx, parentIDs)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]uint, 0, len(top))
	for _, comment := range top {
		authorIDs = append(authorIDs, comment.AuthorID)
	}
	for _, group := range replies {
		for _, reply := range group {
			authorIDs = append(authorIDs, reply.AuthorID)
		}
	}
	users, err := s.UsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	for _, comment := range top {
		view := CommentView{
			Comment: comment,
			Author:  authorOf(users, comment.AuthorID),
		}
		for _, reply := range replies[comment.ID] {
			view.Replies = append(view.Replies, CommentView{
				Comment: reply,
				Author:  authorOf(users, reply.AuthorID),
			})
		}
		views = append(views, view)
	}
	return views, nil
}

// PublicUser is the projection returned by registration and profile
// endpoints.
type PublicUser struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// ComposeUser projects a user for API responses, hiding credentials.
func ComposeUser(user *models.User) PublicUser {
	return PublicUser{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
	}
}
