package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockbbs/stockbbs/config"
	"github.com/stockbbs/stockbbs/models"
	"github.com/stockbbs/stockbbs/routes"
	"github.com/stockbbs/stockbbs/store"
	"github.com/stockbbs/stockbbs/utils"
)

func setupRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	config.SetForTesting(config.AppConfig{
		AppPort:   "0",
		JWTSecret: "test-secret",
		GinMode:   "test",
		GinPath:   filepath.Join(t.TempDir(), "access.log"),
		LogLevel:  "error",
	})
	require.NoError(t, utils.InitLogger(config.Get()))

	s := store.NewMemoryStore()
	return routes.SetupRouter(s), s
}

func registerUser(t *testing.T, s *store.MemoryStore, email string) (*models.User, string) {
	t.Helper()
	hash, err := utils.HashPassword("hunter22")
	require.NoError(t, err)
	user := &models.User{Email: email, PasswordHash: hash}
	require.NoError(t, s.CreateUser(context.Background(), user))

	token, err := utils.GenerateToken(user.ID, user.Email, time.Hour)
	require.NoError(t, err)
	return user, token
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestRegister(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/register", "", gin.H{
		"email":    "carol@example.com",
		"password": "hunter22",
		"name":     "Carol",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "carol@example.com", body["email"])
	assert.Equal(t, "Carol", body["name"])
	assert.NotEmpty(t, body["createdAt"])
	assert.NotContains(t, w.Body.String(), "hunter22")

	// Duplicate email keeps the historical 400 answer
	w = doJSON(r, http.MethodPost, "/register", "", gin.H{
		"email":    "carol@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])

	w = doJSON(r, http.MethodPost, "/register", "", gin.H{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	r, s := setupRouter(t)
	user, _ := registerUser(t, s, "carol@example.com")

	w := doJSON(r, http.MethodPost, "/login", "", gin.H{
		"email":    user.Email,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])

	w = doJSON(r, http.MethodPost, "/login", "", gin.H{
		"email":    user.Email,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/login", "", gin.H{
		"email":    "nobody@example.com",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostLifecycle(t *testing.T) {
	r, s := setupRouter(t)
	_, tokenU1 := registerUser(t, s, "u1@example.com")
	_, tokenU2 := registerUser(t, s, "u2@example.com")

	// U1 creates a post
	w := doJSON(r, http.MethodPost, "/posts", tokenU1, gin.H{"title": "A", "content": "B"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	assert.EqualValues(t, 0, created["views"])
	postID := int(created["id"].(float64))
	postPath := "/posts/" + strconv.Itoa(postID)

	// First fetch reflects the view increment
	w = doJSON(r, http.MethodGet, postPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["views"])

	// U2 likes, like count becomes 1
	w = doJSON(r, http.MethodPost, postPath+"/like", tokenU2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["liked"])

	w = doJSON(r, http.MethodGet, postPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["likeCount"])

	// U2 unlikes, count back to 0
	w = doJSON(r, http.MethodPost, postPath+"/like", tokenU2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["liked"])

	w = doJSON(r, http.MethodGet, postPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["likeCount"])

	// Only the author may delete
	w = doJSON(r, http.MethodDelete, postPath, tokenU2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodDelete, postPath, tokenU1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = doJSON(r, http.MethodGet, postPath, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePost_Validation(t *testing.T) {
	r, s := setupRouter(t)
	_, token := registerUser(t, s, "u1@example.com")

	w := doJSON(r, http.MethodPost, "/posts", token, gin.H{"title": "  ", "content": "B"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])

	// No row was created
	w = doJSON(r, http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pagination := decode(t, w)["pagination"].(map[string]interface{})
	assert.EqualValues(t, 0, pagination["total"])

	// Unauthenticated create is rejected
	w = doJSON(r, http.MethodPost, "/posts", "", gin.H{"title": "A", "content": "B"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListPosts_PaginationShape(t *testing.T) {
	r, s := setupRouter(t)
	user, token := registerUser(t, s, "u1@example.com")
	_ = user

	for _, title := range []string{"one", "two", "three"} {
		w := doJSON(r, http.MethodPost, "/posts", token, gin.H{"title": title, "content": "body"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(r, http.MethodGet, "/posts?page=1&limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	posts := body["posts"].([]interface{})
	assert.Len(t, posts, 2)

	pagination := body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["page"])
	assert.EqualValues(t, 2, pagination["limit"])
	assert.EqualValues(t, 3, pagination["total"])
	assert.EqualValues(t, 2, pagination["totalPages"])

	// Newest first
	first := posts[0].(map[string]interface{})
	assert.Equal(t, "three", first["title"])
	assert.NotNil(t, first["author"])
}

func TestComments(t *testing.T) {
	r, s := setupRouter(t)
	_, token := registerUser(t, s, "u1@example.com")

	w := doJSON(r, http.MethodPost, "/posts", token, gin.H{"title": "A", "content": "B"})
	require.Equal(t, http.StatusCreated, w.Code)
	postID := int(decode(t, w)["id"].(float64))
	base := "/posts/" + strconv.Itoa(postID) + "/comments"

	// Empty content rejected
	w = doJSON(r, http.MethodPost, base, token, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unauthenticated rejected
	w = doJSON(r, http.MethodPost, base, "", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, base, token, gin.H{"content": "top comment"})
	require.Equal(t, http.StatusCreated, w.Code)
	parentID := int(decode(t, w)["id"].(float64))

	w = doJSON(r, http.MethodPost, base, token, gin.H{"content": "a reply", "parentId": parentID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var comments []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "top comment", comments[0]["content"])

	replies := comments[0]["replies"].([]interface{})
	require.Len(t, replies, 1)
	assert.Equal(t, "a reply", replies[0].(map[string]interface{})["content"])

	// Comments on a missing post 404
	w = doJSON(r, http.MethodPost, "/posts/9999/comments", token, gin.H{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLikeEndpoints(t *testing.T) {
	r, s := setupRouter(t)
	_, token := registerUser(t, s, "u1@example.com")

	w := doJSON(r, http.MethodPost, "/posts", token, gin.H{"title": "A", "content": "B"})
	require.Equal(t, http.StatusCreated, w.Code)
	likePath := "/posts/" + strconv.Itoa(int(decode(t, w)["id"].(float64))) + "/like"

	// Anonymous status is always false
	w = doJSON(r, http.MethodGet, likePath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["liked"])

	// Unauthenticated toggle is rejected and leaves no row behind
	w = doJSON(r, http.MethodPost, likePath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, likePath, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["liked"])

	w = doJSON(r, http.MethodPost, likePath, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["liked"])

	w = doJSON(r, http.MethodGet, likePath, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["liked"])

	w = doJSON(r, http.MethodPost, "/posts/9999/like", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMeAndProfile(t *testing.T) {
	r, s := setupRouter(t)
	user, token := registerUser(t, s, "u1@example.com")

	w := doJSON(r, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.Email, decode(t, w)["email"])

	w = doJSON(r, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPatch, "/profile", token, gin.H{"name": "New Name"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New Name", decode(t, w)["name"])
}

func TestStats(t *testing.T) {
	r, s := setupRouter(t)
	_, token := registerUser(t, s, "u1@example.com")

	w := doJSON(r, http.MethodPost, "/posts", token, gin.H{"title": "A", "content": "B"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["userCount"])
	assert.EqualValues(t, 1, body["postCount"])
	assert.EqualValues(t, 0, body["commentCount"])
}

