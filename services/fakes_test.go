package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"poiAPI/internal/backend"
)

type methodFunc func(identity *backend.Identity, args []any) (any, error)

// fakeBackend answers Call by method name and round-trips results through JSON
// the way the HTTP transport does.
type fakeBackend struct {
	mu       sync.Mutex
	methods  map[string]methodFunc
	calls    map[string]int
	created  int
	failWith error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{methods: map[string]methodFunc{}, calls: map[string]int{}}
}

func (b *fakeBackend) on(method string, fn methodFunc) *fakeBackend {
	b.mu.Lock()
	b.methods[method] = fn
	b.mu.Unlock()
	return b
}

func (b *fakeBackend) returns(method string, v any) *fakeBackend {
	return b.on(method, func(*backend.Identity, []any) (any, error) { return v, nil })
}

func (b *fakeBackend) fails(method string, err error) *fakeBackend {
	return b.on(method, func(*backend.Identity, []any) (any, error) { return nil, err })
}

func (b *fakeBackend) callCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *fakeBackend) CreateActor(canisterID string, identity *backend.Identity) (backend.Caller, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return nil, b.failWith
	}
	if canisterID == "" {
		return nil, backend.ErrNotConfigured
	}
	b.created++
	return &fakeCaller{backend: b, identity: identity}, nil
}

type fakeCaller struct {
	backend  *fakeBackend
	identity *backend.Identity
}

func (c *fakeCaller) Call(ctx context.Context, method string, out any, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.backend.mu.Lock()
	c.backend.calls[method]++
	fn, ok := c.backend.methods[method]
	c.backend.mu.Unlock()
	if !ok {
		return &backend.RemoteError{Method: method, StatusCode: 404, Message: fmt.Sprintf("no method %s", method)}
	}

	result, err := fn(c.identity, args)
	if err != nil {
		return err
	}
	if out == nil || result == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
