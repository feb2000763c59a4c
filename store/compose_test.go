package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockbbs/stockbbs/models"
)

func TestComposePosts(t *testing.T) {
	s, author := newTestStore(t)
	ctx := context.Background()

	commenter := &models.User{Email: "bob@example.com", PasswordHash: "secret-hash"}
	require.NoError(t, s.CreateUser(ctx, commenter))

	post := createPost(t, s, author.ID, "composed")
	_, err := s.CreateComment(ctx, post.ID, commenter.ID, "nice", nil)
	require.NoError(t, err)
	_, err = s.ToggleLike(ctx, post.ID, commenter.ID)
	require.NoError(t, err)

	views, err := ComposePosts(ctx, s, []models.Post{*post})
	require.NoError(t, err)
	require.Len(t, views, 1)

	view := views[0]
	assert.Equal(t, post.ID, view.Post.ID)
	assert.Equal(t, author.ID, view.Author.ID)
	require.NotNil(t, view.Author.Name)
	assert.Equal(t, "Alice", *view.Author.Name)
	assert.EqualValues(t, 1, view.Counts.Comments)
	assert.EqualValues(t, 1, view.Counts.Likes)
}

func TestComposePosts_Empty(t *testing.T) {
	s, _ := newTestStore(t)

	views, err := ComposePosts(context.Background(), s, nil)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestComposePosts_NoCredentialLeak(t *testing.T) {
	s, author := newTestStore(t)
	ctx := context.Background()

	post := createPost(t, s, author.ID, "private")
	views, err := ComposePosts(ctx, s, []models.Post{*post})
	require.NoError(t, err)

	b, err := json.Marshal(views)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "password")
	assert.NotContains(t, string(b), author.PasswordHash)
	assert.Contains(t, string(b), `"commentCount"`)
	assert.Contains(t, string(b), `"likeCount"`)
}

func TestComposeComments(t *testing.T) {
	s, author := newTestStore(t)
	ctx := context.Background()

	replier := &models.User{Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, replier))

	post := createPost(t, s, author.ID, "threaded")
	top, err := s.CreateComment(ctx, post.ID, author.ID, "top", nil)
	require.NoError(t, err)
	reply, err := s.CreateComment(ctx, post.ID, replier.ID, "reply", &top.ID)
	require.NoError(t, err)

	topLevel, err := s.TopLevelComments(ctx, post.ID)
	require.NoError(t, err)

	views, err := ComposeComments(ctx, s, topLevel)
	require.NoError(t, err)
	require.Len(t, views, 1)

	assert.Equal(t, top.ID, views[0].Comment.ID)
	assert.Equal(t, author.ID, views[0].Author.ID)
	require.Len(t, views[0].Replies, 1)
	assert.Equal(t, reply.ID, views[0].Replies[0].Comment.ID)
	assert.Equal(t, replier.ID, views[0].Replies[0].Author.ID)
	assert.Empty(t, views[0].Replies[0].Replies)
}

func TestComposeUser(t *testing.T) {
	s, user := newTestStore(t)
	_ = s

	projection := ComposeUser(user)
	assert.Equal(t, user.ID, projection.ID)
	assert.Equal(t, user.Email, projection.Email)

	b, err := json.Marshal(projection)
	require.NoError(t, err)
	assert.NotContains(t, string(b), user.PasswordHash)
}
