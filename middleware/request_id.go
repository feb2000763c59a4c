package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stockbbs/stockbbs/utils"
)

// RequestID tags every request with a uuid, echoed in the response header
// and picked up by the access logger. Incoming ids from trusted proxies are
// kept so traces stay correlated across hops.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(utils.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Writer.Header().Set(utils.HeaderRequestID, id)
		ctx.Next()
	}
}
