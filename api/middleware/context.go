package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/customeros/maildigest/internal/utils"
)

// CustomContextMiddleware tags the request context with the app source and
// a request id.
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.WithCustomContextFromGinRequest(c, appSource)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
