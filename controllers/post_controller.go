package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stockbbs/stockbbs/store"
	"github.com/stockbbs/stockbbs/utils"
)

// PostController manages CRUD operations for posts.
type PostController struct {
	store store.Store
}

// NewPostController creates a new PostController instance.
func NewPostController(s store.Store) *PostController {
	return &PostController{store: s}
}

// ListPosts returns paginated posts with author projections and live counts.
// Supports exact-match stockCode/tag filters and newest|hottest ordering.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"))

	var filter store.PostFilter
	if code := strings.TrimSpace(ctx.Query("stockCode")); code != "" {
		filter.StockCode = &code
	}
	if tag := strings.TrimSpace(ctx.Query("tag")); tag != "" {
		filter.Tag = &tag
	}
	sort := store.SortNewest
	if ctx.Query("sort") == store.SortHottest {
		sort = store.SortHottest
	}

	posts, total, err := p.store.ListPosts(ctx.Request.Context(), filter, sort, page, limit)
	if err != nil {
		utils.Sugar.Errorf("list posts failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to list posts")
		return
	}

	views, err := store.ComposePosts(ctx.Request.Context(), p.store, posts)
	if err != nil {
		utils.Sugar.Errorf("compose posts failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to list posts")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"posts":      views,
		"pagination": store.NewPagination(page, limit, total),
	})
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title     string   `json:"title"`
		Content   string   `json:"content"`
		StockCode string   `json:"stockCode"`
		StockName string   `json:"stockName"`
		Tags      []string `json:"tags"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	post, err := p.store.CreatePost(ctx.Request.Context(), store.PostInput{
		AuthorID:  userID,
		Title:     utils.Sanitize(req.Title),
		Content:   utils.Sanitize(req.Content),
		StockCode: req.StockCode,
		StockName: req.StockName,
		Tags:      req.Tags,
	})
	if err != nil {
		var vErr *store.ValidationError
		if errors.As(err, &vErr) {
			utils.Error(ctx, http.StatusBadRequest, vErr.Msg)
			return
		}
		utils.Sugar.Errorf("create post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to create post")
		return
	}

	view, err := store.ComposePost(ctx.Request.Context(), p.store, post)
	if err != nil {
		utils.Sugar.Errorf("compose post failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to create post")
		return
	}
	ctx.JSON(http.StatusCreated, view)
}

// GetPost returns a single post with author and counts, incrementing the
// view counter by exactly 1 for every successful fetch.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}

	post, err := p.store.PostByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Sugar.Errorf("load post %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}

	if err := p.store.IncrementViews(ctx.Request.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
		utils.Sugar.Errorf("increment views for post %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}
	post.Views++

	view, err := store.ComposePost(ctx.Request.Context(), p.store, post)
	if err != nil {
		utils.Sugar.Errorf("compose post %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// DeletePost allows the author to delete their post. Comments and likes are
// removed together with the post row.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := p.store.DeletePost(ctx.Request.Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, "post not found")
		case errors.Is(err, store.ErrForbidden):
			utils.Error(ctx, http.StatusForbidden, "you can only delete your own posts")
		default:
			utils.Sugar.Errorf("delete post %d failed: %v", id, err)
			utils.Error(ctx, http.StatusInternalServerError, "failed to delete post")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
