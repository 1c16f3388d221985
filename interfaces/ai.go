package interfaces

import (
	"context"

	"github.com/customeros/maildigest/dto"
)

type AIService interface {
	Complete(ctx context.Context, request dto.CompletionRequest) (string, error)
	// CallFunction forces a call of fn and returns its raw JSON arguments.
	CallFunction(ctx context.Context, request dto.CompletionRequest, fn dto.FunctionSpec) (string, error)
	Ping(ctx context.Context) error
	Model() string
}
