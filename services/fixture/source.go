package fixture

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
	"github.com/customeros/maildigest/internal/enum"
	mderrors "github.com/customeros/maildigest/internal/errors"
)

//go:embed testdata/*.eml
var samples embed.FS

// fixtureSource serves the embedded sample messages, newest first. Nothing
// is marked read, so every fetch returns the same messages.
type fixtureSource struct {
	messages []dto.RawMessage
}

func NewFixtureSource() (interfaces.MessageSource, error) {
	entries, err := fs.ReadDir(samples, "testdata")
	if err != nil {
		return nil, errors.Wrap(err, "read fixture samples")
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	messages := make([]dto.RawMessage, 0, len(names))
	for _, name := range names {
		data, err := samples.ReadFile(path.Join("testdata", name))
		if err != nil {
			return nil, errors.Wrapf(err, "read fixture %s", name)
		}
		messages = append(messages, dto.RawMessage{
			ID:     "fixture-" + strings.TrimSuffix(name, ".eml"),
			Source: enum.SourceFixture,
			MIME:   data,
		})
	}
	return &fixtureSource{messages: messages}, nil
}

func (s *fixtureSource) Name() string {
	return enum.SourceFixture.String()
}

func (s *fixtureSource) Fetch(_ context.Context, maxResults int) ([]dto.RawMessage, error) {
	if maxResults <= 0 {
		return nil, mderrors.New(mderrors.ErrValidation, "max results must be positive")
	}
	n := maxResults
	if n > len(s.messages) {
		n = len(s.messages)
	}
	out := make([]dto.RawMessage, n)
	copy(out, s.messages[:n])
	return out, nil
}
