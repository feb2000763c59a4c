package utils

import "github.com/gin-gonic/gin"

// HeaderRequestID is the response header carrying the per-request id.
const HeaderRequestID = "X-Request-Id"

// Error writes the uniform error payload {"error": message}.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"error": message})
}
