package sink

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/interfaces"
)

// Multi persists to every sink and aggregates the failures.
type Multi struct {
	sinks []interfaces.Sink
}

func NewMulti(sinks ...interfaces.Sink) *Multi {
	filtered := make([]interfaces.Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &Multi{sinks: filtered}
}

func (m *Multi) Name() string {
	return "multi"
}

func (m *Multi) Sinks() []interfaces.Sink {
	return m.sinks
}

func (m *Multi) Names() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

func (m *Multi) Persist(ctx context.Context, result *dto.ProcessedResult) error {
	var err error
	for _, s := range m.sinks {
		if persistErr := s.Persist(ctx, result); persistErr != nil {
			err = multierr.Append(err, errors.Wrapf(persistErr, "sink %s", s.Name()))
		}
	}
	return err
}

// With returns a new Multi that also persists to extra.
func (m *Multi) With(extra ...interfaces.Sink) *Multi {
	all := append(append([]interfaces.Sink{}, m.sinks...), extra...)
	return NewMulti(all...)
}
