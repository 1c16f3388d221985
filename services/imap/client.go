package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/tracing"
)

const (
	dialTimeout   = 30 * time.Second
	loginTimeout  = 30 * time.Second
	logoutTimeout = 5 * time.Second
)

// connect dials the server and logs in. The caller must disconnect the
// returned client.
func (s *imapSource) connect(ctx context.Context) (*client.Client, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSource.connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", s.cfg.ImapServer)
	span.SetTag("port", s.cfg.ImapPort)
	span.SetTag("tls", s.cfg.ImapTLS)

	serverAddr := fmt.Sprintf("%s:%d", s.cfg.ImapServer, s.cfg.ImapPort)

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	var c *client.Client
	var err error
	if s.cfg.ImapTLS {
		tlsConfig := s.tlsConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: s.cfg.ImapServer}
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		err = mderrors.Wrap(mderrors.ErrConnection, err, fmt.Sprintf("failed to connect to %s", serverAddr))
		tracing.TraceErr(span, err)
		return nil, err
	}

	loginSpan := opentracing.StartSpan(
		"IMAPSource.login",
		opentracing.ChildOf(span.Context()),
	)
	loginSpan.SetTag("username", s.cfg.Address)

	c.Timeout = loginTimeout
	err = c.Login(s.cfg.Address, s.cfg.Password)
	if err != nil {
		_ = c.Logout()
		err = mderrors.Wrap(mderrors.ErrAuth, err, fmt.Sprintf("failed to login as %s", s.cfg.Address))
		tracing.TraceErr(loginSpan, err)
		loginSpan.Finish()
		tracing.TraceErr(span, err)
		return nil, err
	}
	loginSpan.SetTag("success", true)
	loginSpan.Finish()

	c.Timeout = 0
	span.SetTag("success", true)
	return c, nil
}

// disconnect logs out, giving up after logoutTimeout.
func (s *imapSource) disconnect(c *client.Client) {
	if c == nil {
		return
	}

	c.Timeout = logoutTimeout
	done := make(chan error, 1)
	go func() {
		done <- c.Logout()
	}()

	select {
	case err := <-done:
		if err != nil && err != client.ErrAlreadyLoggedOut {
			s.log.Warnf("Error during IMAP logout: %v", err)
		}
	case <-time.After(logoutTimeout):
		s.log.Warn("IMAP logout timed out")
		_ = c.Terminate()
	}
}
