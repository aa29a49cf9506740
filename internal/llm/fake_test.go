package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// fakeProvider is an in-memory Provider for executor and health tests.
type fakeProvider struct {
	id      ProviderID
	content string
	err     error
	delay   time.Duration
	block   bool // wait for ctx to end

	calls atomic.Int32
	mu    sync.Mutex
	last  Options
}

func (f *fakeProvider) ID() ProviderID { return f.id }
func (f *fakeProvider) Model() string  { return "fake-" + string(f.id) }

func (f *fakeProvider) Call(ctx context.Context, prompt, systemInstructions string, opts Options) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = opts
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func okProvider(id ProviderID) *fakeProvider {
	return &fakeProvider{id: id, content: "answer from " + string(id)}
}

func failingProvider(id ProviderID, err error) *fakeProvider {
	return &fakeProvider{id: id, err: err}
}
