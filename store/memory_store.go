package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stockbbs/stockbbs/models"
)

// MemoryStore is an in-memory Store with the same semantics as the MySQL
// implementation. It backs the test suite and needs no running database.
type MemoryStore struct {
	mu sync.Mutex

	users    map[uint]models.User
	posts    map[uint]models.Post
	comments map[uint]models.Comment
	likes    map[[2]uint]models.Like // key: {postID, userID}

	nextUserID    uint
	nextPostID    uint
	nextCommentID uint
	nextLikeID    uint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    map[uint]models.User{},
		posts:    map[uint]models.Post{},
		comments: map[uint]models.Comment{},
		likes:    map[[2]uint]models.Like{},
	}
}

// === Users ===

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrConflict
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUserProfile(ctx context.Context, id uint, name, avatar *string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if name != nil {
		user.Name = name
	}
	if avatar != nil {
		user.Avatar = avatar
	}
	user.UpdatedAt = time.Now()
	s.users[id] = user
	return &user, nil
}

func (s *MemoryStore) UsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[uint]models.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			result[id] = user
		}
	}
	return result, nil
}

// === Posts ===

func (s *MemoryStore) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	post, err := normalizePostInput(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPostID++
	post.ID = s.nextPostID
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	s.posts[post.ID] = *post
	return post, nil
}

func (s *MemoryStore) PostByID(ctx context.Context, id uint) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &post, nil
}

func (s *MemoryStore) IncrementViews(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return ErrNotFound
	}
	post.Views++
	s.posts[id] = post
	return nil
}

func (s *MemoryStore) ListPosts(ctx context.Context, filter PostFilter, sort string, page, limit int) ([]models.Post, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		if filter.StockCode != nil && (post.StockCode == nil || *post.StockCode != *filter.StockCode) {
			continue
		}
		if filter.Tag != nil && !containsTag(post.Tags, *filter.Tag) {
			continue
		}
		matched = append(matched, post)
	}

	sortPosts(matched, sort)

	total := int64(len(matched))
	offset := (page - 1) * limit
	if offset >= len(matched) {
		return []models.Post{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) DeletePost(ctx context.Context, id, requesterID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return ErrNotFound
	}
	if post.AuthorID != requesterID {
		return ErrForbidden
	}
	for cid, comment := range s.comments {
		if comment.PostID == id {
			delete(s.comments, cid)
		}
	}
	for key := range s.likes {
		if key[0] == id {
			delete(s.likes, key)
		}
	}
	delete(s.posts, id)
	return nil
}

// === Comments ===

func (s *MemoryStore) CreateComment(ctx context.Context, postID, authorID uint, content string, parentID *uint) (*models.Comment, error) {
	content, err := normalizeComment(content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, ErrNotFound
	}
	if parentID != nil {
		parent, ok := s.comments[*parentID]
		if !ok {
			return nil, validation("parent comment not found")
		}
		if parent.PostID != postID {
			return nil, validation("parent comment belongs to another post")
		}
		if parent.ParentID != nil {
			return nil, validation("replies cannot be nested further")
		}
	}

	s.nextCommentID++
	now := time.Now()
	comment := models.Comment{
		ID:        s.nextCommentID,
		PostID:    postID,
		AuthorID:  authorID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.comments[comment.ID] = comment
	return &comment, nil
}

func (s *MemoryStore) TopLevelComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var top []models.Comment
	for _, comment := range s.comments {
		if comment.PostID == postID && comment.ParentID == nil {
			top = append(top, comment)
		}
	}
	sort.Slice(top, func(i, j int) bool {
		if !top[i].CreatedAt.Equal(top[j].CreatedAt) {
			return top[i].CreatedAt.After(top[j].CreatedAt)
		}
		return top[i].ID > top[j].ID
	})
	return top, nil
}

func (s *MemoryStore) RepliesByParentIDs(ctx context.Context, parentIDs []uint) (map[uint][]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[uint]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}
	result := make(map[uint][]models.Comment, len(parentIDs))
	for _, comment := range s.comments {
		if comment.ParentID != nil && wanted[*comment.ParentID] {
			result[*comment.ParentID] = append(result[*comment.ParentID], comment)
		}
	}
	for parent := range result {
		replies := result[parent]
		sort.Slice(replies, func(i, j int) bool {
			if !replies[i].CreatedAt.Equal(replies[j].CreatedAt) {
				return replies[i].CreatedAt.Before(replies[j].CreatedAt)
			}
			return replies[i].ID < replies[j].ID
		})
		result[parent] = replies
	}
	return result, nil
}

// === Likes ===

func (s *MemoryStore) LikeStatus(ctx context.Context, postID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.likes[[2]uint{postID, userID}]
	return ok, nil
}

func (s *MemoryStore) ToggleLike(ctx context.Context, postID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return false, ErrNotFound
	}
	key := [2]uint{postID, userID}
	if _, ok := s.likes[key]; ok {
		delete(s.likes, key)
		return false, nil
	}
	s.nextLikeID++
	s.likes[key] = models.Like{ID: s.nextLikeID, PostID: postID, UserID: userID, CreatedAt: time.Now()}
	return true, nil
}

// === Aggregates ===

func (s *MemoryStore) CountsByPostIDs(ctx context.Context, postIDs []uint) (map[uint]Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[uint]Counts, len(postIDs))
	wanted := make(map[uint]bool, len(postIDs))
	for _, id := range postIDs {
		wanted[id] = true
	}
	for _, comment := range s.comments {
		if wanted[comment.PostID] {
			c := result[comment.PostID]
			c.Comments++
			result[comment.PostID] = c
		}
	}
	for key := range s.likes {
		if wanted[key[0]] {
			c := result[key[0]]
			c.Likes++
			result[key[0]] = c
		}
	}
	return result, nil
}

func (s *MemoryStore) Totals(ctx context.Context) (users, posts, comments int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), int64(len(s.posts)), int64(len(s.comments)), nil
}

func containsTag(tags models.Tags, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sortPosts(posts []models.Post, order string) {
	sort.Slice(posts, func(i, j int) bool {
		if order == SortHottest && posts[i].Views != posts[j].Views {
			return posts[i].Views > posts[j].Views
		}
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
}
