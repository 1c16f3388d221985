package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jomei/notionapi"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/tracing"
	"github.com/customeros/maildigest/internal/utils"
)

type notionService struct {
	cfg    *config.NotionConfig
	client *notionapi.Client
	log    logger.Logger
}

func NewNotionService(cfg *config.NotionConfig, log logger.Logger) interfaces.NotionService {
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: newAPITransport(cfg.Url, http.DefaultTransport),
	}
	opts := []notionapi.ClientOption{notionapi.WithHTTPClient(httpClient)}
	if cfg.Version != "" {
		opts = append(opts, notionapi.WithVersion(cfg.Version))
	}
	return &notionService{
		cfg:    cfg,
		client: notionapi.NewClient(notionapi.Token(cfg.ApiKey), opts...),
		log:    log,
	}
}

func (s *notionService) Name() string {
	return "notion"
}

func (s *notionService) Persist(ctx context.Context, result *dto.ProcessedResult) error {
	_, err := s.CreatePage(ctx, result)
	return err
}

func (s *notionService) CreatePage(ctx context.Context, result *dto.ProcessedResult) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "NotionService.CreatePage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagComponentExternalAPI(span)
	tracing.TagEntity(span, result.MessageID)

	if s.cfg.ApiKey == "" || s.cfg.DatabaseID == "" {
		err := mderrors.New(mderrors.ErrValidation, "notion key and database id are required")
		tracing.TraceErr(span, err)
		return "", err
	}

	page, err := s.client.Page.Create(ctx, buildPageRequest(s.cfg.DatabaseID, result, utils.Now()))
	if err != nil {
		err = translateError(err)
		tracing.TraceErr(span, err)
		s.log.Errorf("Notion page creation failed for %s: %v", result.MessageID, err)
		return "", err
	}
	span.LogKV("page.id", page.ID.String())
	return page.ID.String(), nil
}

// translateError maps Notion API failures onto the error kinds. Rate limiting
// is transient and reported as a connection failure.
func translateError(err error) error {
	var rateLimited *notionapi.RateLimitedError
	if errors.As(err, &rateLimited) {
		return mderrors.Wrap(mderrors.ErrConnection, err, "notion rate limited")
	}

	var apiErr *notionapi.Error
	if !errors.As(err, &apiErr) {
		var urlErr *url.Error
		if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return mderrors.Wrap(mderrors.ErrConnection, err, "notion request failed")
		}
		return mderrors.Wrap(mderrors.ErrProtocol, err, "unexpected notion response")
	}

	message := fmt.Sprintf("notion returned %d: %s %s", apiErr.Status, apiErr.Code, apiErr.Message)
	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return mderrors.New(mderrors.ErrAuth, message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return mderrors.New(mderrors.ErrValidation, message)
	case http.StatusTooManyRequests:
		return mderrors.New(mderrors.ErrConnection, message)
	default:
		if apiErr.Status >= 500 {
			return mderrors.New(mderrors.ErrConnection, message)
		}
		return mderrors.New(mderrors.ErrProtocol, message)
	}
}

// apiTransport sends requests to the configured Notion host and carries the
// caller's span in the request headers.
type apiTransport struct {
	host *url.URL
	next http.RoundTripper
}

func newAPITransport(rawURL string, next http.RoundTripper) http.RoundTripper {
	t := &apiTransport{next: next}
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		t.host = u
	}
	return t
}

func (t *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.host != nil {
		req.URL.Scheme = t.host.Scheme
		req.URL.Host = t.host.Host
		req.Host = ""
	}
	if span := opentracing.SpanFromContext(req.Context()); span != nil {
		tracing.InjectSpanContextIntoHTTPRequest(req, span)
	}
	return t.next.RoundTrip(req)
}
