package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockbbs/stockbbs/store"
	"github.com/stockbbs/stockbbs/utils"
)

// StatsController exposes live forum totals.
type StatsController struct {
	store store.Store
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(s store.Store) *StatsController {
	return &StatsController{store: s}
}

// GetStats returns aggregate statistics computed from current rows.
func (s *StatsController) GetStats(ctx *gin.Context) {
	users, posts, comments, err := s.store.Totals(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorf("load totals failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load stats")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"userCount":    users,
		"postCount":    posts,
		"commentCount": comments,
	})
}
