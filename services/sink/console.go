package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/customeros/maildigest/dto"
)

const divider = "========================================\n"

// Console prints results in a human readable block.
type Console struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewConsole() *Console {
	return &Console{writer: os.Stdout}
}

// NewConsoleWithWriter is used by tests.
func NewConsoleWithWriter(w io.Writer) *Console {
	return &Console{writer: w}
}

func (c *Console) Name() string {
	return "console"
}

func (c *Console) Persist(_ context.Context, result *dto.ProcessedResult) error {
	var b strings.Builder

	b.WriteString(divider)
	if result.Title != "" {
		b.WriteString(fmt.Sprintf("Title: %s\n", result.Title))
	}
	b.WriteString(fmt.Sprintf("From: %s\n", result.Sender))
	b.WriteString(fmt.Sprintf("Subject: %s\n", result.Subject))
	b.WriteString(fmt.Sprintf("Newsletter: %t\n", result.IsNewsletter))
	b.WriteString(fmt.Sprintf("Priority: %s\n", result.Priority))
	b.WriteString("Summary:\n")
	b.WriteString(result.Summary + "\n")

	if len(result.ActionItems) > 0 {
		b.WriteString("Action items:\n")
		for _, item := range result.ActionItems {
			b.WriteString("  - " + item + "\n")
		}
	}
	if len(result.AttachmentNames) > 0 {
		b.WriteString(fmt.Sprintf("Attachments: %s\n", strings.Join(result.AttachmentNames, ", ")))
	}
	b.WriteString(divider)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprint(c.writer, b.String()); err != nil {
		return errors.Wrap(err, "write console output")
	}
	return nil
}
