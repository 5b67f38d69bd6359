package provider

import (
	"context"
	"sync"
)

// Mock is a Translator for tests.
type Mock struct {
	// TranslateFunc, when set, handles each call. Otherwise Response/Err are
	// returned as-is.
	TranslateFunc func(ctx context.Context, req Request) (*Response, error)
	Response      *Response
	Err           error

	mu       sync.Mutex
	requests []Request
	closed   bool
}

func (m *Mock) Translate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, req)
	}
	return m.Response, m.Err
}

func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Requests returns a copy of all requests seen so far.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Translator = (*Mock)(nil)
