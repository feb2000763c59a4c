package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/stockbbs/stockbbs/models"
	"github.com/stockbbs/stockbbs/utils"
)

// GormStore is the MySQL-backed Store implementation.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an initialized gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// === Users ===

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *GormStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) UpdateUserProfile(ctx context.Context, id uint, name, avatar *string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if name != nil {
			user.Name = name
		}
		if avatar != nil {
			user.Avatar = avatar
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) UsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	result := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Find(&users, utils.UniqueUint(ids)).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// === Posts ===

func (s *GormStore) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	post, err := normalizePostInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func (s *GormStore) PostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// IncrementViews bumps the view counter with a storage-side expression so
// concurrent detail reads never lose an increment.
func (s *GormStore) IncrementViews(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListPosts(ctx context.Context, filter PostFilter, sort string, page, limit int) ([]models.Post, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{})
	if filter.StockCode != nil {
		query = query.Where("stock_code = ?", *filter.StockCode)
	}
	if filter.Tag != nil {
		query = query.Where("JSON_CONTAINS(tags, JSON_QUOTE(?))", *filter.Tag)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// id is the final tiebreak so equal (views, created_at) rows keep a
	// stable order across pages.
	switch sort {
	case SortHottest:
		query = query.Order("views DESC, created_at DESC, id DESC")
	default:
		query = query.Order("created_at DESC, id DESC")
	}

	var posts []models.Post
	if err := query.Offset((page - 1) * limit).Limit(limit).Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// DeletePost removes a post together with its comments and likes in one
// transaction. Only the author may delete.
func (s *GormStore) DeletePost(ctx context.Context, id, requesterID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if post.AuthorID != requesterID {
			return ErrForbidden
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}

// === Comments ===

func (s *GormStore) CreateComment(ctx context.Context, postID, authorID uint, content string, parentID *uint) (*models.Comment, error) {
	content, err := normalizeComment(content)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: authorID,
		ParentID: parentID,
		Content:  content,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var postCount int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&postCount).Error; err != nil {
			return err
		}
		if postCount == 0 {
			return ErrNotFound
		}
		if parentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, *parentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return validation("parent comment not found")
				}
				return err
			}
			if parent.PostID != postID {
				return validation("parent comment belongs to another post")
			}
			if parent.ParentID != nil {
				return validation("replies cannot be nested further")
			}
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *GormStore) TopLevelComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	return comments, err
}

// RepliesByParentIDs loads replies for a whole page of top-level comments in
// one query, grouped by parent and ordered oldest first.
func (s *GormStore) RepliesByParentIDs(ctx context.Context, parentIDs []uint) (map[uint][]models.Comment, error) {
	result := make(map[uint][]models.Comment, len(parentIDs))
	if len(parentIDs) == 0 {
		return result, nil
	}
	var replies []models.Comment
	err := s.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("parent_id, created_at ASC, id ASC").
		Find(&replies).Error
	if err != nil {
		return nil, err
	}
	for _, r := range replies {
		if r.ParentID != nil {
			result[*r.ParentID] = append(result[*r.ParentID], r)
		}
	}
	return result, nil
}

// === Likes ===

func (s *GormStore) LikeStatus(ctx context.Context, postID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

// ToggleLike flips the like membership for the (post, user) pair inside a
// transaction. A concurrent double-submission can still lose the insert race
// to the unique index; the loser is retried once as a delete so the caller
// sees a consistent toggled state instead of a hard failure.
func (s *GormStore) ToggleLike(ctx context.Context, postID, userID uint) (bool, error) {
	var postCount int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&postCount).Error; err != nil {
		return false, err
	}
	if postCount == 0 {
		return false, ErrNotFound
	}

	liked := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}
		if err := tx.Create(&models.Like{PostID: postID, UserID: userID}).Error; err != nil {
			return err
		}
		liked = true
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			res := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
			if res.Error != nil {
				return false, res.Error
			}
			return false, nil
		}
		return false, err
	}
	return liked, nil
}

// === Aggregates ===

type postAggregate struct {
	PostID uint
	Count  int64
}

// CountsByPostIDs computes live comment/like counts with one grouped query
// per aggregate, independent of how many posts are on the page.
func (s *GormStore) CountsByPostIDs(ctx context.Context, postIDs []uint) (map[uint]Counts, error) {
	result := make(map[uint]Counts, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	ids := utils.UniqueUint(postIDs)

	var rows []postAggregate
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		c := result[row.PostID]
		c.Comments = row.Count
		result[row.PostID] = c
	}

	rows = rows[:0]
	err = s.db.WithContext(ctx).Model(&models.Like{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		c := result[row.PostID]
		c.Likes = row.Count
		result[row.PostID] = c
	}
	return result, nil
}

func (s *GormStore) Totals(ctx context.Context) (users, posts, comments int64, err error) {
	if err = s.db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return
	}
	if err = s.db.WithContext(ctx).Model(&models.Post{}).Count(&posts).Error; err != nil {
		return
	}
	err = s.db.WithContext(ctx).Model(&models.Comment{}).Count(&comments).Error
	return
}
