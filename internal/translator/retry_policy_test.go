package translator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oukeidos/loct/internal/apperrors"
	"github.com/oukeidos/loct/internal/provider"
)

type sequenceClient struct {
	mu        sync.Mutex
	calls     int
	responses []sequenceResponse
}

type sequenceResponse struct {
	resp *provider.Response
	err  error
}

func (c *sequenceClient) Translate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	idx := c.calls - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx].resp, c.responses[idx].err
}

func (c *sequenceClient) Close() error { return nil }

func quietBackoff(t *testing.T) {
	t.Helper()
	quietLimits(t)
	oldAttempts := maxAttempts
	t.Cleanup(func() { maxAttempts = oldAttempts })
}

func TestRetryPolicy_TransientRetriesThenSucceeds(t *testing.T) {
	quietBackoff(t)

	client := &sequenceClient{
		responses: []sequenceResponse{
			{err: apperrors.Transient(errors.New("temporary"))},
			{err: apperrors.Transient(errors.New("temporary"))},
			{resp: &provider.Response{Text: "ok"}},
		},
	}
	tr, err := New(client, Options{Concurrency: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	start := time.Now()
	run, err := tr.Translate(context.Background(), makeSegments("hello"), nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if run.Failed != 0 {
		t.Fatalf("expected recovery after transient errors, got %d failed", run.Failed)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
	// Two backoffs of at least one second each must have elapsed.
	if elapsed := time.Since(start); elapsed < 2*time.Second {
		t.Errorf("retries completed in %v, backoff not applied", elapsed)
	}
}

func TestRetryPolicy_NonRetryableFailsFast(t *testing.T) {
	quietBackoff(t)

	tests := []struct {
		name string
		err  error
	}{
		{"auth", apperrors.Auth(errors.New("bad key"))},
		{"bad request", apperrors.BadRequest(errors.New("rejected"))},
		{"unclassified", errors.New("plain")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &sequenceClient{responses: []sequenceResponse{{err: tt.err}}}
			tr, err := New(client, Options{Concurrency: 1})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			run, err := tr.Translate(context.Background(), makeSegments("hello"), nil)
			if err != nil {
				t.Fatalf("Translate failed: %v", err)
			}
			if run.Failed != 1 {
				t.Fatalf("expected 1 failed segment, got %d", run.Failed)
			}
			if client.calls != 1 {
				t.Errorf("expected a single attempt for %s, got %d", tt.name, client.calls)
			}
		})
	}
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	quietBackoff(t)
	maxAttempts = 2

	client := &sequenceClient{
		responses: []sequenceResponse{
			{err: apperrors.Transient(errors.New("temporary"))},
		},
	}
	tr, err := New(client, Options{Concurrency: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	run, err := tr.Translate(context.Background(), makeSegments("hello"), nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if run.Failed != 1 {
		t.Fatalf("expected failure after exhausting attempts, got %d failed", run.Failed)
	}
	if client.calls != 2 {
		t.Errorf("expected maxAttempts=2 attempts, got %d", client.calls)
	}
}

func TestRetryDecision(t *testing.T) {
	ctx := context.Background()
	transient := apperrors.Transient(errors.New("t"))
	rateLimited := apperrors.RateLimit(errors.New("r"))

	if retry, _ := retryDecision(ctx, nil, 1, 3); retry {
		t.Errorf("nil error should not retry")
	}
	if retry, _ := retryDecision(ctx, transient, 3, 3); retry {
		t.Errorf("final attempt should not retry")
	}
	if retry, _ := retryDecision(ctx, context.Canceled, 1, 3); retry {
		t.Errorf("context cancellation should not retry")
	}
	if retry, _ := retryDecision(ctx, apperrors.Auth(errors.New("a")), 1, 3); retry {
		t.Errorf("auth errors should not retry")
	}

	retry, transientBackoff := retryDecision(ctx, transient, 1, 3)
	if !retry {
		t.Fatalf("transient error should retry")
	}
	retry, rateBackoff := retryDecision(ctx, rateLimited, 1, 3)
	if !retry {
		t.Fatalf("rate limit error should retry")
	}
	// Rate limiting doubles the base backoff; jitter adds at most a second
	// to either, so the floor comparison still holds.
	if rateBackoff < 2*time.Second {
		t.Errorf("rate limit backoff = %v, want >= 2s", rateBackoff)
	}
	if transientBackoff < 1*time.Second {
		t.Errorf("transient backoff = %v, want >= 1s", transientBackoff)
	}
}
