package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/tracing"
)

const (
	codeInsufficientQuota = "insufficient_quota"
	codeInvalidAPIKey     = "invalid_api_key"
)

type aiService struct {
	cfg    *config.OpenAIConfig
	client *openai.Client
}

func NewAIService(cfg *config.OpenAIConfig) interfaces.AIService {
	clientConfig := openai.DefaultConfig(cfg.ApiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &aiService{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (s *aiService) Model() string {
	return s.cfg.Model
}

func (s *aiService) Complete(ctx context.Context, request dto.CompletionRequest) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.Complete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("model", s.cfg.Model)
	span.SetTag("max_tokens", request.MaxTokens)

	resp, err := s.createChatCompletion(ctx, s.chatRequest(request))
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	if len(resp.Choices) == 0 {
		err := mderrors.New(mderrors.ErrModelUnavailable, "model returned no choices")
		tracing.TraceErr(span, err)
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}

func (s *aiService) CallFunction(ctx context.Context, request dto.CompletionRequest, fn dto.FunctionSpec) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.CallFunction")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("model", s.cfg.Model)
	span.SetTag("function", fn.Name)

	chatRequest := s.chatRequest(request)
	chatRequest.Tools = []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		},
	}
	chatRequest.ToolChoice = openai.ToolChoice{
		Type:     openai.ToolTypeFunction,
		Function: openai.ToolFunction{Name: fn.Name},
	}

	resp, err := s.createChatCompletion(ctx, chatRequest)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	if len(resp.Choices) > 0 {
		message := resp.Choices[0].Message
		for _, call := range message.ToolCalls {
			if call.Function.Name == fn.Name {
				return call.Function.Arguments, nil
			}
		}
		if message.FunctionCall != nil && message.FunctionCall.Name == fn.Name {
			return message.FunctionCall.Arguments, nil
		}
	}

	err = mderrors.New(mderrors.ErrModelUnavailable, fmt.Sprintf("model did not call %s", fn.Name))
	tracing.TraceErr(span, err)
	return "", err
}

// Ping sends a minimal completion to check the key, quota and model.
func (s *aiService) Ping(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.Ping")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	_, err := s.Complete(ctx, dto.CompletionRequest{
		Messages:  []dto.ChatMessage{{Role: dto.RoleUser, Content: "Hello"}},
		MaxTokens: 5,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (s *aiService) chatRequest(request dto.CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(request.Messages))
	for _, m := range request.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
	}
}

func (s *aiService) createChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return resp, TranslateError(err)
	}
	return resp, nil
}

// TranslateError maps provider failures onto the error taxonomy. Structured
// codes are checked first; the message text is only a fallback for proxies
// that flatten provider errors.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var kind error
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		switch {
		case code == codeInsufficientQuota || apiErr.Type == codeInsufficientQuota:
			kind = mderrors.ErrQuotaExceeded
		case code == codeInvalidAPIKey || apiErr.HTTPStatusCode == http.StatusUnauthorized:
			kind = mderrors.ErrAuth
		}
	case errors.As(err, &reqErr):
		if reqErr.HTTPStatusCode == http.StatusUnauthorized {
			kind = mderrors.ErrAuth
		}
	}

	if kind == nil {
		message := err.Error()
		switch {
		case strings.Contains(message, codeInsufficientQuota):
			kind = mderrors.ErrQuotaExceeded
		case strings.Contains(message, codeInvalidAPIKey):
			kind = mderrors.ErrAuth
		}
	}

	if kind == nil {
		return mderrors.Wrap(mderrors.ErrModelUnavailable, err, "llm request failed")
	}
	return mderrors.Wrap(mderrors.ErrModelUnavailable, mderrors.Wrap(kind, err, ""), "llm request failed")
}
