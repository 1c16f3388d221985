package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/tracing"
)

const (
	selectTimeout = 30 * time.Second
	fetchTimeout  = 60 * time.Second
)

type imapSource struct {
	cfg       *config.MailConfig
	log       logger.Logger
	tlsConfig *tls.Config
}

type Option func(*imapSource)

// WithTLSConfig overrides the TLS settings, e.g. to trust a test certificate.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(s *imapSource) {
		s.tlsConfig = tlsConfig
	}
}

func NewIMAPSource(cfg *config.MailConfig, log logger.Logger, opts ...Option) interfaces.MessageSource {
	s := &imapSource{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *imapSource) Name() string {
	return enum.SourceIMAP.String()
}

// Fetch returns up to maxResults unseen messages, newest first. Every call
// opens and closes its own session.
func (s *imapSource) Fetch(ctx context.Context, maxResults int) ([]dto.RawMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSource.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailbox", s.cfg.Mailbox)
	span.SetTag("max_results", maxResults)

	if maxResults <= 0 {
		err := mderrors.New(mderrors.ErrValidation, "max results must be positive")
		tracing.TraceErr(span, err)
		return nil, err
	}
	if s.cfg.Address == "" || s.cfg.Password == "" {
		err := mderrors.New(mderrors.ErrAuth, "email address and password are required")
		tracing.TraceErr(span, err)
		return nil, err
	}

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.disconnect(c)

	c.Timeout = selectTimeout
	mbox, err := c.Select(s.mailbox(), false)
	c.Timeout = 0
	if err != nil {
		err = s.protocolError(err, fmt.Sprintf("error selecting folder %s", s.mailbox()))
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("messages.total", mbox.Messages)

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	seqNums, err := c.Search(criteria)
	if err != nil {
		err = s.protocolError(err, "error searching unseen messages")
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("messages.unseen", len(seqNums))
	if len(seqNums) == 0 {
		return []dto.RawMessage{}, nil
	}

	seqNums = newest(seqNums, maxResults)

	messages, err := s.fetchMessages(ctx, c, seqNums)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.log.Info("Fetched unseen messages",
		zap.String("mailbox", s.mailbox()),
		zap.Int("count", len(messages)))
	return messages, nil
}

func (s *imapSource) fetchMessages(ctx context.Context, c *client.Client, seqNums []uint32) ([]dto.RawMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSource.fetchMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	// BODY[] without PEEK marks the messages seen so the next poll skips them.
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	c.Timeout = fetchTimeout
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	bySeq := make(map[uint32]dto.RawMessage, len(seqNums))
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil {
			s.log.Warnf("IMAP message %d has no body, skipping", msg.SeqNum)
			continue
		}
		body, err := io.ReadAll(literal)
		if err != nil {
			s.log.Warnf("Error reading IMAP message %d: %v", msg.SeqNum, err)
			continue
		}
		bySeq[msg.SeqNum] = dto.RawMessage{
			ID:     messageID(msg),
			Source: enum.SourceIMAP,
			MIME:   body,
		}
	}
	c.Timeout = 0

	if err := <-done; err != nil {
		return nil, s.protocolError(err, "error fetching messages")
	}

	out := make([]dto.RawMessage, 0, len(bySeq))
	for _, seq := range seqNums {
		if raw, ok := bySeq[seq]; ok {
			out = append(out, raw)
		}
	}
	span.SetTag("messages.fetched", len(out))
	return out, nil
}

func (s *imapSource) mailbox() string {
	if s.cfg.Mailbox == "" {
		return "INBOX"
	}
	return s.cfg.Mailbox
}

func (s *imapSource) protocolError(err error, message string) error {
	if isConnectionError(err) {
		return mderrors.Wrap(mderrors.ErrConnection, err, message)
	}
	return mderrors.Wrap(mderrors.ErrProtocol, err, message)
}

// newest orders sequence numbers descending and keeps at most max.
func newest(seqNums []uint32, max int) []uint32 {
	sorted := append([]uint32(nil), seqNums...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	if len(sorted) > max {
		sorted = sorted[:max]
	}
	return sorted
}

func messageID(msg *imap.Message) string {
	if msg.Envelope != nil && msg.Envelope.MessageId != "" {
		return msg.Envelope.MessageId
	}
	if msg.Uid != 0 {
		return fmt.Sprintf("imap-uid-%d", msg.Uid)
	}
	return fmt.Sprintf("imap-seq-%d", msg.SeqNum)
}
