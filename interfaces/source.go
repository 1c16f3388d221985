package interfaces

import (
	"context"

	"github.com/customeros/maildigest/dto"
)

// MessageSource returns at most maxResults unread messages, newest first.
type MessageSource interface {
	Name() string
	Fetch(ctx context.Context, maxResults int) ([]dto.RawMessage, error)
}
