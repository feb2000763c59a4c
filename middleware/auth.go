package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stockbbs/stockbbs/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextTokenKey stores the raw bearer token for logout revocation.
	ContextTokenKey = "token"
	// ContextTokenExpKey stores the token expiration for logout revocation.
	ContextTokenExpKey = "token_exp"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, claims, ok := bearerClaims(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, "authentication required")
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextTokenKey, token)
		if claims.ExpiresAt != nil {
			ctx.Set(ContextTokenExpKey, claims.ExpiresAt.Time)
		}
		ctx.Next()
	}
}

// OptionalAuth resolves the caller identity when a valid token is presented
// and leaves the request anonymous otherwise. Reads such as the like status
// endpoint answer for anonymous callers instead of rejecting them.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, claims, ok := bearerClaims(ctx); ok {
			ctx.Set(ContextUserIDKey, claims.UserID)
		}
		ctx.Next()
	}
}

func bearerClaims(ctx *gin.Context) (string, *utils.Claims, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", nil, false
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" || utils.IsTokenBlacklisted(tokenString) {
		return "", nil, false
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return "", nil, false
	}
	return tokenString, claims, true
}
