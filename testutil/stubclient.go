package testutil

import (
	"context"
	"sync"

	"github.com/anyspecs/anyspecs/internal/provider"
	"github.com/anyspecs/anyspecs/internal/session"
)

// StubClient is a provider.Client that returns scripted responses and
// counts calls. Safe for concurrent use.
type StubClient struct {
	// Completion is returned once Errs is exhausted.
	Completion string

	// Errs are returned in order, one per call, before Completion.
	Errs []error

	mu    sync.Mutex
	calls int
}

var _ provider.Client = (*StubClient)(nil)

func (c *StubClient) Name() string  { return "stub" }
func (c *StubClient) Model() string { return "stub-model" }

func (c *StubClient) Capabilities() provider.Capabilities {
	return provider.Capabilities{MaxInputBytes: 1 << 20}
}

func (c *StubClient) Compress(ctx context.Context, sess *session.Session, promptTemplate string, opts provider.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	n := c.calls
	c.calls++
	c.mu.Unlock()

	if n < len(c.Errs) {
		return "", c.Errs[n]
	}
	return c.Completion, nil
}

// Calls reports how many times Compress was invoked.
func (c *StubClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
