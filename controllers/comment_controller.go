package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockbbs/stockbbs/models"
	"github.com/stockbbs/stockbbs/store"
	"github.com/stockbbs/stockbbs/utils"
)

// CommentController manages the two-level comment tree of a post.
type CommentController struct {
	store store.Store
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(s store.Store) *CommentController {
	return &CommentController{store: s}
}

// ListComments returns the post's top-level comments newest-first, each with
// its replies attached oldest-first.
func (c *CommentController) ListComments(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}

	top, err := c.store.TopLevelComments(ctx.Request.Context(), id)
	if err != nil {
		utils.Sugar.Errorf("list comments for post %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to list comments")
		return
	}

	views, err := store.ComposeComments(ctx.Request.Context(), c.store, top)
	if err != nil {
		utils.Sugar.Errorf("compose comments for post %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to list comments")
		return
	}
	ctx.JSON(http.StatusOK, views)
}

// CreateComment allows authenticated users to comment on a post, optionally
// replying to an existing top-level comment.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parentId"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

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

	comment, err := c.store.CreateComment(ctx.Request.Context(), id, userID, utils.Sanitize(req.Content), req.ParentID)
	if err != nil {
		var vErr *store.ValidationError
		switch {
		case errors.As(err, &vErr):
			utils.Error(ctx, http.StatusBadRequest, vErr.Msg)
		case errors.Is(err, store.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, "post not found")
		default:
			utils.Sugar.Errorf("create comment on post %d failed: %v", id, err)
			utils.Error(ctx, http.StatusInternalServerError, "failed to create comment")
		}
		return
	}

	views, err := store.ComposeComments(ctx.Request.Context(), c.store, []models.Comment{*comment})
	if err != nil {
		utils.Sugar.Errorf("compose comment %d failed: %v", comment.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to create comment")
		return
	}
	ctx.JSON(http.StatusCreated, views[0])
}
