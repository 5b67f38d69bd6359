package translator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oukeidos/loct/internal/apperrors"
	"github.com/oukeidos/loct/internal/provider"
	"github.com/oukeidos/loct/internal/segmenter"
)

func quietLimits(t *testing.T) {
	t.Helper()
	oldQPS := defaultQPS
	oldRamp := defaultRampUp
	defaultQPS = 0
	defaultRampUp = 0
	t.Cleanup(func() {
		defaultQPS = oldQPS
		defaultRampUp = oldRamp
	})
}

func makeSegments(texts ...string) []segmenter.Segment {
	segments := make([]segmenter.Segment, len(texts))
	for i, text := range texts {
		segments[i] = segmenter.Segment{
			Index: i,
			Text:  text,
			Blank: strings.TrimSpace(text) == "",
		}
	}
	return segments
}

func TestTranslator_OrderPreservedUnderParallelism(t *testing.T) {
	quietLimits(t)

	// Random per-call delays force out-of-order completion; the join must
	// still match sequential processing.
	client := &provider.Mock{
		TranslateFunc: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
			return &provider.Response{Text: "T:" + req.Text}, nil
		},
	}

	tr, err := New(client, Options{Concurrency: 5})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	segments := makeSegments("s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7")
	run, err := tr.Translate(context.Background(), segments, nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	want := "T:s0 T:s1 T:s2 T:s3 T:s4 T:s5 T:s6 T:s7"
	if got := run.Output(); got != want {
		t.Errorf("Output() = %q, want %q", got, want)
	}
	if run.Succeeded != 8 || run.Failed != 0 || run.Skipped != 0 {
		t.Errorf("counts = %d/%d/%d, want 8/0/0", run.Succeeded, run.Failed, run.Skipped)
	}
}

func TestTranslator_PartialFailureIsolated(t *testing.T) {
	quietLimits(t)

	client := &provider.Mock{
		TranslateFunc: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			if req.Text == "bad" {
				return nil, apperrors.BadRequest(errors.New("rejected"))
			}
			return &provider.Response{Text: "T:" + req.Text}, nil
		},
	}

	tr, err := New(client, Options{Concurrency: 2})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	run, err := tr.Translate(context.Background(), makeSegments("a", "bad", "c"), nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if run.Failed != 1 || run.Succeeded != 2 {
		t.Fatalf("counts = failed %d succeeded %d, want 1/2", run.Failed, run.Succeeded)
	}
	if got := run.FailedIndices(); len(got) != 1 || got[0] != 1 {
		t.Errorf("FailedIndices() = %v, want [1]", got)
	}
	if run.Results[1].Err == nil {
		t.Errorf("failed segment carries no error")
	}
	if !strings.Contains(run.Results[1].Text, "[translation failed:") {
		t.Errorf("failed segment placeholder = %q", run.Results[1].Text)
	}
	// Neighbours are untouched by the failure.
	if run.Results[0].Text != "T:a" || run.Results[2].Text != "T:c" {
		t.Errorf("neighbour results = %q, %q", run.Results[0].Text, run.Results[2].Text)
	}
}

func TestTranslator_BlankSegmentsPassThrough(t *testing.T) {
	quietLimits(t)

	client := &provider.Mock{
		TranslateFunc: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Text: "T:" + req.Text}, nil
		},
	}

	tr, err := New(client, Options{Concurrency: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	run, err := tr.Translate(context.Background(), makeSegments("a", "   ", "c"), nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if run.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", run.Skipped)
	}
	if run.Results[1].Text != "   " || run.Results[1].Err != nil {
		t.Errorf("blank segment = %+v, want identity pass-through", run.Results[1])
	}
	// The service never sees the blank.
	for _, req := range client.Requests() {
		if strings.TrimSpace(req.Text) == "" {
			t.Errorf("blank segment was sent to the service")
		}
	}
}

func TestTranslator_EmptySegmentList(t *testing.T) {
	quietLimits(t)

	tr, err := New(&provider.Mock{}, Options{Concurrency: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	run, err := tr.Translate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if run.Total != 0 || run.Output() != "" {
		t.Errorf("empty input produced run %+v", run)
	}
}

func TestTranslator_RequestCarriesOptions(t *testing.T) {
	quietLimits(t)

	client := &provider.Mock{Response: &provider.Response{Text: "ok"}}
	tr, err := New(client, Options{
		Concurrency:    1,
		SourceLanguage: "French",
		TargetLanguage: "English",
		Instruction:    "Formal register.",
		Temperature:    0.3,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := tr.Translate(context.Background(), makeSegments("bonjour"), nil); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	reqs := client.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.Text != "bonjour" || req.SourceLanguage != "French" || req.TargetLanguage != "English" ||
		req.Instruction != "Formal register." || req.Temperature != 0.3 {
		t.Errorf("request = %+v", req)
	}
}

func TestTranslator_UsageAccumulates(t *testing.T) {
	quietLimits(t)

	client := &provider.Mock{
		TranslateFunc: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{
				Text:  "t",
				Usage: provider.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
			}, nil
		},
	}
	tr, err := New(client, Options{Concurrency: 2})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	run, err := tr.Translate(context.Background(), makeSegments("a", "b", "c"), nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	want := provider.Usage{InputTokens: 30, OutputTokens: 15, TotalTokens: 45}
	if run.Usage != want {
		t.Errorf("Usage = %+v, want %+v", run.Usage, want)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		client  provider.Translator
		opts    Options
		wantErr bool
	}{
		{"valid", &provider.Mock{}, Options{Concurrency: 1}, false},
		{"nil client", nil, Options{Concurrency: 1}, true},
		{"zero concurrency", &provider.Mock{}, Options{Concurrency: 0}, true},
		{"negative temperature", &provider.Mock{}, Options{Concurrency: 1, Temperature: -0.1}, true},
		{"temperature above one", &provider.Mock{}, Options{Concurrency: 1, Temperature: 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.client, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProgress_Monotonic(t *testing.T) {
	quietLimits(t)

	client := &provider.Mock{
		TranslateFunc: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			if req.Text == "fail" {
				return nil, apperrors.BadRequest(errors.New("no"))
			}
			return &provider.Response{Text: "t"}, nil
		},
	}
	tr, err := New(client, Options{Concurrency: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var mu sync.Mutex
	var completions []int
	terminal := 0
	segments := makeSegments("a", "b", "fail", " ", "e", "f")
	run, err := tr.Translate(context.Background(), segments, func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		completions = append(completions, p.Completed)
		if p.Total != len(segments) {
			t.Errorf("Progress.Total = %d, want %d", p.Total, len(segments))
		}
		if f := p.Fraction(); f < 0 || f > 1 {
			t.Errorf("Fraction() = %v out of range", f)
		}
		switch p.State {
		case StateCompleted, StateFailed, StateSkipped:
			terminal++
		}
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(completions); i++ {
		if completions[i] < completions[i-1] {
			t.Fatalf("Completed went backwards at callback %d: %v", i, completions)
		}
	}
	if completions[len(completions)-1] != len(segments) {
		t.Errorf("final Completed = %d, want %d", completions[len(completions)-1], len(segments))
	}
	if terminal != len(segments) {
		t.Errorf("terminal callbacks = %d, want one per segment", terminal)
	}
	if run.Failed != 1 || run.Skipped != 1 {
		t.Errorf("counts = failed %d skipped %d, want 1/1", run.Failed, run.Skipped)
	}
}

func TestRun_OutputJoinsWithSingleSpace(t *testing.T) {
	run := &Run{Results: []Result{
		{Index: 0, Text: "one"},
		{Index: 1, Text: "two"},
		{Index: 2, Text: "three"},
	}}
	if got := run.Output(); got != "one two three" {
		t.Errorf("Output() = %q", got)
	}
}

func TestFailureText(t *testing.T) {
	err := apperrors.Transient(errors.New("socket reset by upstream at 10.0.0.7"))
	text := FailureText(err)
	if !strings.HasPrefix(text, "[translation failed:") {
		t.Errorf("FailureText() = %q", text)
	}
	if strings.Contains(text, "10.0.0.7") {
		t.Errorf("FailureText() leaked internal cause: %q", text)
	}
	if text != fmt.Sprintf("[translation failed: %s]", apperrors.PublicMessage(err)) {
		t.Errorf("FailureText() = %q, want public message wrapping", text)
	}
}

func TestTranslator_ReuseResetsUsage(t *testing.T) {
	quietLimits(t)

	client := &provider.Mock{
		TranslateFunc: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{
				Text:  "T:" + req.Text,
				Usage: provider.Usage{InputTokens: 5, OutputTokens: 3, TotalTokens: 8},
			}, nil
		},
	}

	tr, err := New(client, Options{Concurrency: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := tr.Translate(context.Background(), makeSegments("a", "b"), nil); err != nil {
		t.Fatalf("first Translate failed: %v", err)
	}
	run, err := tr.Translate(context.Background(), makeSegments("c"), nil)
	if err != nil {
		t.Fatalf("second Translate failed: %v", err)
	}

	// Usage is per run, not accumulated across the translator's lifetime.
	if run.Usage.TotalTokens != 8 {
		t.Errorf("second run TotalTokens = %d, want 8", run.Usage.TotalTokens)
	}
	if got := tr.Usage(); got.TotalTokens != 8 {
		t.Errorf("Usage() after second run = %d, want 8", got.TotalTokens)
	}
}

func TestTranslator_EmptyTranslationSurvivesCancellation(t *testing.T) {
	quietLimits(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Segment 0 legitimately translates to the empty string; the call for
	// segment 1 cancels the run. The empty result must keep its slot.
	client := &provider.Mock{
		TranslateFunc: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			if req.Text == "empty" {
				return &provider.Response{Text: ""}, nil
			}
			cancel()
			return nil, apperrors.Transient(ctx.Err())
		},
	}

	tr, err := New(client, Options{Concurrency: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	run, err := tr.Translate(ctx, makeSegments("empty", "boom"), nil)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if !run.Canceled {
		t.Fatalf("expected canceled run")
	}
	if run.Results[0].Err != nil || run.Results[0].Text != "" {
		t.Errorf("completed empty result was overwritten: %+v", run.Results[0])
	}
	if run.Results[1].Err == nil {
		t.Errorf("canceled segment carries no error: %+v", run.Results[1])
	}
	if run.Failed != 1 || run.Succeeded != 1 {
		t.Errorf("counts = failed %d succeeded %d, want 1/1", run.Failed, run.Succeeded)
	}
}
