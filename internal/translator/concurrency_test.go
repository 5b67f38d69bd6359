package translator

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/oukeidos/loct/internal/provider"
)

func TestTranslator_GoroutineLimit(t *testing.T) {
	quietLimits(t)

	concurrency := 5
	segmentCount := 100

	client := &provider.Mock{
		TranslateFunc: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			// Simulate slow API call
			time.Sleep(100 * time.Millisecond)
			return &provider.Response{Text: "translated"}, nil
		},
	}
	tr, err := New(client, Options{Concurrency: concurrency})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	texts := make([]string, segmentCount)
	for i := range texts {
		texts[i] = "test"
	}
	segments := makeSegments(texts...)

	initialGoroutines := runtime.NumGoroutine()

	errChan := make(chan error, 1)
	go func() {
		_, err := tr.Translate(context.Background(), segments, nil)
		errChan <- err
	}()

	// Wait a bit for workers to spin up
	time.Sleep(300 * time.Millisecond)

	currentGoroutines := runtime.NumGoroutine()
	// Before bounding, this would have been initial + segmentCount.
	if currentGoroutines > initialGoroutines+concurrency+10 {
		t.Errorf("Too many goroutines: got %d, initial was %d, concurrency is %d", currentGoroutines, initialGoroutines, concurrency)
	}

	if err := <-errChan; err != nil {
		t.Errorf("Translate failed: %v", err)
	}
}

func TestTranslator_ConcurrentCallsBounded(t *testing.T) {
	quietLimits(t)

	concurrency := 3
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	client := &provider.Mock{
		TranslateFunc: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return &provider.Response{Text: "t"}, nil
		},
	}
	tr, err := New(client, Options{Concurrency: concurrency})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	texts := make([]string, 30)
	for i := range texts {
		texts[i] = "x"
	}
	if _, err := tr.Translate(context.Background(), makeSegments(texts...), nil); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if maxInFlight > concurrency {
		t.Errorf("outstanding calls peaked at %d, cap is %d", maxInFlight, concurrency)
	}
	if maxInFlight < 2 {
		t.Errorf("calls never overlapped; concurrency not exercised (peak %d)", maxInFlight)
	}
}
