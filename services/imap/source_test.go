package imap

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/logger"
)

func startTestServer(t *testing.T) (string, int) {
	t.Helper()

	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = s.Serve(l)
	}()
	t.Cleanup(func() {
		_ = s.Close()
	})

	addr := l.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func appendMessage(t *testing.T, host string, port int, id, subject string) {
	t.Helper()

	c, err := client.Dial(fmt.Sprintf("%s:%d", host, port))
	require.NoError(t, err)
	defer c.Logout()
	require.NoError(t, c.Login("username", "password"))

	raw := "From: sender@example.com\r\n" +
		"To: username@example.org\r\n" +
		"Subject: " + subject + "\r\n" +
		"Message-Id: <" + id + ">\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Body of " + subject + "\r\n"
	require.NoError(t, c.Append("INBOX", nil, time.Now(), bytes.NewBufferString(raw)))
}

func testConfig(host string, port int) *config.MailConfig {
	return &config.MailConfig{
		Address:    "username",
		Password:   "password",
		ImapServer: host,
		ImapPort:   port,
		ImapTLS:    false,
		Mailbox:    "INBOX",
	}
}

func TestFetch_ReturnsNewestUnseenFirst(t *testing.T) {
	host, port := startTestServer(t)
	appendMessage(t, host, port, "m1@example.com", "First")
	appendMessage(t, host, port, "m2@example.com", "Second")
	appendMessage(t, host, port, "m3@example.com", "Third")

	src := NewIMAPSource(testConfig(host, port), logger.NewNopLogger())
	messages, err := src.Fetch(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0].ID, "m3@example.com")
	assert.Contains(t, messages[1].ID, "m2@example.com")
	assert.Equal(t, enum.SourceIMAP, messages[0].Source)
	assert.Contains(t, string(messages[0].MIME), "Subject: Third")
	assert.Equal(t, "imap", src.Name())
}

func TestFetch_NoUnseenMessages(t *testing.T) {
	host, port := startTestServer(t)

	messages, err := NewIMAPSource(testConfig(host, port), logger.NewNopLogger()).Fetch(context.Background(), 10)

	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestFetch_WrongPasswordIsAuthError(t *testing.T) {
	host, port := startTestServer(t)
	cfg := testConfig(host, port)
	cfg.Password = "wrong"

	_, err := NewIMAPSource(cfg, logger.NewNopLogger()).Fetch(context.Background(), 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, mderrors.ErrAuth)
}

func TestFetch_UnreachableServerIsConnectionError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	_, err = NewIMAPSource(testConfig("127.0.0.1", port), logger.NewNopLogger()).Fetch(context.Background(), 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, mderrors.ErrConnection)
}

func TestFetch_UnknownMailboxIsProtocolError(t *testing.T) {
	host, port := startTestServer(t)
	cfg := testConfig(host, port)
	cfg.Mailbox = "Missing"

	_, err := NewIMAPSource(cfg, logger.NewNopLogger()).Fetch(context.Background(), 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, mderrors.ErrProtocol)
}

func TestFetch_RejectsNonPositiveMax(t *testing.T) {
	_, err := NewIMAPSource(testConfig("127.0.0.1", 1), logger.NewNopLogger()).Fetch(context.Background(), 0)
	assert.ErrorIs(t, err, mderrors.ErrValidation)
}

func TestNewest(t *testing.T) {
	assert.Equal(t, []uint32{9, 7, 4}, newest([]uint32{4, 9, 1, 7}, 3))
	assert.Equal(t, []uint32{2, 1}, newest([]uint32{1, 2}, 5))
}
