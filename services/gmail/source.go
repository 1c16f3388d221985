package gmail

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/tracing"
)

const user = "me"

type gmailSource struct {
	cfg         *config.GmailConfig
	log         logger.Logger
	store       TokenStore
	tokenSource oauth2.TokenSource

	mu  sync.Mutex
	srv *gmail.Service
}

type Option func(*gmailSource)

// WithTokenSource skips the token store and consent flow.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(s *gmailSource) {
		s.tokenSource = ts
	}
}

func WithTokenStore(store TokenStore) Option {
	return func(s *gmailSource) {
		s.store = store
	}
}

func NewGmailSource(cfg *config.GmailConfig, log logger.Logger, opts ...Option) interfaces.MessageSource {
	s := &gmailSource{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gmailSource) Name() string {
	return enum.SourceGmail.String()
}

// Fetch lists the most recent messages (Gmail returns newest first) and loads
// each in full format. A message that cannot be loaded is skipped; auth failures
// abort the fetch.
func (s *gmailSource) Fetch(ctx context.Context, maxResults int) ([]dto.RawMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailSource.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagComponentExternalAPI(span)
	span.SetTag("max_results", maxResults)

	if maxResults <= 0 {
		err := mderrors.New(mderrors.ErrValidation, "max results must be positive")
		tracing.TraceErr(span, err)
		return nil, err
	}

	srv, err := s.service(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	list, err := srv.Users.Messages.List(user).
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		err = translateError(err, "unable to list gmail messages")
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("messages.listed", len(list.Messages))

	messages := make([]dto.RawMessage, 0, len(list.Messages))
	for _, ref := range list.Messages {
		if len(messages) >= maxResults {
			break
		}
		msg, err := srv.Users.Messages.Get(user, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			err = translateError(err, "unable to get gmail message "+ref.Id)
			if mderrors.IsAuth(err) || ctx.Err() != nil {
				tracing.TraceErr(span, err)
				return nil, err
			}
			s.log.Warn("Skipping gmail message", zap.String("messageId", ref.Id), zap.Error(err))
			continue
		}
		messages = append(messages, dto.RawMessage{
			ID:     msg.Id,
			Source: enum.SourceGmail,
			Gmail:  msg,
		})
	}
	span.SetTag("messages.fetched", len(messages))
	return messages, nil
}

func (s *gmailSource) service(ctx context.Context) (*gmail.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return s.srv, nil
	}

	ts, err := s.resolveTokenSource(ctx)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if s.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.cfg.Endpoint))
	}
	srv, err := gmail.NewService(context.Background(), opts...)
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ErrConnection, err, "unable to create gmail service")
	}
	s.srv = srv
	return srv, nil
}

func (s *gmailSource) resolveTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if s.tokenSource != nil {
		return s.tokenSource, nil
	}

	oauthConfig, err := LoadOAuthConfig(s.cfg)
	if err != nil {
		return nil, err
	}

	store := s.store
	if store == nil {
		store, err = NewKeyringTokenStore(s.cfg)
		if err != nil {
			return nil, mderrors.Wrap(mderrors.ErrAuth, err, "gmail token store unavailable")
		}
	}

	token, err := store.Load()
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ErrAuth, err, "gmail token unreadable")
	}
	if token == nil {
		token, err = Authorize(ctx, oauthConfig, s.cfg.RedirectPort, s.log)
		if err != nil {
			return nil, err
		}
		if err := store.Save(token); err != nil {
			s.log.Warnf("Unable to save gmail token: %v", err)
		}
	}

	base := oauthConfig.TokenSource(context.Background(), token)
	return newPersistingTokenSource(base, store, token, func(err error) {
		if err != nil {
			s.log.Warnf("Unable to save refreshed gmail token: %v", err)
		}
	}), nil
}

func translateError(err error, message string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return mderrors.Wrap(mderrors.ErrAuth, err, message)
		}
		return mderrors.Wrap(mderrors.ErrProtocol, err, message)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return mderrors.Wrap(mderrors.ErrAuth, err, message)
	}

	return mderrors.Wrap(mderrors.ErrConnection, err, message)
}
