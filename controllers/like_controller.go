package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockbbs/stockbbs/store"
	"github.com/stockbbs/stockbbs/utils"
)

// LikeController handles the per-(post, user) like membership.
type LikeController struct {
	store store.Store
}

// NewLikeController creates a new LikeController instance.
func NewLikeController(s store.Store) *LikeController {
	return &LikeController{store: s}
}

// GetLikeStatus reports whether the caller has liked the post. Anonymous
// callers always receive false.
func (l *LikeController) GetLikeStatus(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, gin.H{"liked": false})
		return
	}

	liked, err := l.store.LikeStatus(ctx.Request.Context(), id, userID)
	if err != nil {
		utils.Sugar.Errorf("like status for post %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load like status")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"liked": liked})
}

// ToggleLike flips the caller's like on the post and returns the new state.
func (l *LikeController) ToggleLike(ctx *gin.Context) {
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

	liked, err := l.store.ToggleLike(ctx.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Sugar.Errorf("toggle like for post %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to toggle like")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"liked": liked})
}
