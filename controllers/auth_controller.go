package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stockbbs/stockbbs/middleware"
	"github.com/stockbbs/stockbbs/models"
	"github.com/stockbbs/stockbbs/store"
	"github.com/stockbbs/stockbbs/utils"
)

const tokenLifetime = 72 * time.Hour

// AuthController handles registration, sessions, and user profiles.
type AuthController struct {
	store store.Store
}

// NewAuthController creates an AuthController.
func NewAuthController(s store.Store) *AuthController {
	return &AuthController{store: s}
}

// Register handles account creation with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		utils.Error(ctx, http.StatusBadRequest, "email and password cannot be empty")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Sugar.Errorf("hash password failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to register")
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = &name
	}

	if err := a.store.CreateUser(ctx.Request.Context(), &user); err != nil {
		// Duplicate email keeps the historical 400 answer rather than 409.
		if errors.Is(err, store.ErrConflict) {
			utils.Error(ctx, http.StatusBadRequest, "email already registered")
			return
		}
		utils.Sugar.Errorf("create user failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to register")
		return
	}

	ctx.JSON(http.StatusCreated, store.ComposeUser(&user))
}

// Login verifies credentials and issues a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, err := a.store.UserByEmail(ctx.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, "invalid email or password")
			return
		}
		utils.Sugar.Errorf("load user failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to login")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, tokenLifetime)
	if err != nil {
		utils.Sugar.Errorf("generate token failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to login")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  store.ComposeUser(user),
	})
}

// Logout revokes the presented token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(tokenLifetime)
	if v, ok := ctx.Get(middleware.ContextTokenExpKey); ok {
		if t, ok := v.(time.Time); ok {
			expiresAt = t
		}
	}
	if token != "" {
		utils.BlacklistToken(token, expiresAt)
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the caller's own projection.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := a.store.UserByID(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.Sugar.Errorf("load user %d failed: %v", userID, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load user")
		return
	}
	ctx.JSON(http.StatusOK, store.ComposeUser(user))
}

// UpdateProfile changes the caller's display name and/or avatar, the only
// mutable user fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Name   *string `json:"name"`
		Avatar *string `json:"avatar"`
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

	if req.Name != nil {
		name := utils.Sanitize(strings.TrimSpace(*req.Name))
		req.Name = &name
	}
	if req.Avatar != nil {
		avatar := strings.TrimSpace(*req.Avatar)
		req.Avatar = &avatar
	}

	user, err := a.store.UpdateUserProfile(ctx.Request.Context(), userID, req.Name, req.Avatar)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.Sugar.Errorf("update profile for user %d failed: %v", userID, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to update profile")
		return
	}

	utils.CacheDelete("cache:user:public:" + strconv.Itoa(int(userID)))
	ctx.JSON(http.StatusOK, store.ComposeUser(user))
}

// GetUserPublic returns a public user projection by ID, cached in Redis.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	idStr := strings.TrimSpace(ctx.Param("id"))
	id, ok := parseID(idStr)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}

	cacheKey := "cache:user:public:" + idStr
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	user, err := a.store.UserByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.Sugar.Errorf("load user %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load user")
		return
	}

	payload := store.ComposeUser(user)
	utils.CacheSetJSON(cacheKey, payload, time.Hour)
	ctx.JSON(http.StatusOK, payload)
}
