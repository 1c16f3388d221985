package sink

import (
	"context"
	"sync"

	"github.com/customeros/maildigest/dto"
)

// Collector keeps results in memory so a handler can return them. Create one
// per request.
type Collector struct {
	mu      sync.Mutex
	results []*dto.ProcessedResult
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Name() string {
	return "response"
}

func (c *Collector) Persist(_ context.Context, result *dto.ProcessedResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
	return nil
}

func (c *Collector) Results() []*dto.ProcessedResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*dto.ProcessedResult, len(c.results))
	copy(out, c.results)
	return out
}
