package utils

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIdHeader = "X-Request-ID"

type CustomContext struct {
	AppSource string
	RequestId string
}

type contextKey string

var customContextKey = contextKey("CUSTOM_CONTEXT")

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey, customContext)
}

// WithCustomContextFromGinRequest reuses the caller's request id when one is
// sent and generates one otherwise.
func WithCustomContextFromGinRequest(c *gin.Context, appSource string) context.Context {
	requestId := c.GetHeader(RequestIdHeader)
	if requestId == "" {
		requestId = uuid.NewString()
	}
	c.Header(RequestIdHeader, requestId)
	return WithCustomContext(c.Request.Context(), &CustomContext{
		AppSource: appSource,
		RequestId: requestId,
	})
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}

func GetRequestIdFromContext(ctx context.Context) string {
	return GetContext(ctx).RequestId
}
