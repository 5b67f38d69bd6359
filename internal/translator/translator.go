// Package translator orchestrates segment translation: it drives every
// segment through the provider client with bounded concurrency, isolates
// per-segment failures, reports progress, and reassembles the output in
// input order.
package translator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oukeidos/loct/internal/apperrors"
	"github.com/oukeidos/loct/internal/provider"
	"github.com/oukeidos/loct/internal/segmenter"
)

// Options configures a Translator.
type Options struct {
	// Concurrency bounds the number of outstanding external calls.
	// 1 reproduces strictly sequential processing.
	Concurrency    int
	SourceLanguage string
	TargetLanguage string
	// Instruction is prepended to every segment's translation request.
	Instruction string
	Temperature float32
}

// Translator drives segments through the external translation service.
type Translator struct {
	client  provider.Translator
	opts    Options
	usage   provider.Usage
	usageMu sync.Mutex
}

// New creates a Translator. The client is the sole external dependency; its
// lifecycle is owned by the caller.
func New(client provider.Translator, opts Options) (*Translator, error) {
	if client == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if opts.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be greater than 0, got %d", opts.Concurrency)
	}
	if opts.Temperature < 0 || opts.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be within [0,1], got %g", opts.Temperature)
	}
	return &Translator{client: client, opts: opts}, nil
}

// State represents the current state of a segment translation.
type State int

const (
	StateStarted State = iota
	StateRetrying
	StateCompleted
	StateFailed
	StateSkipped
	StateCanceled
)

var defaultQPS = 3
var defaultRampUp = 2 * time.Second
var maxAttempts = 3

// Progress reports the state of one segment plus overall completion.
// Completed is monotonically non-decreasing across callbacks.
type Progress struct {
	SegmentIndex int
	Completed    int
	Total        int
	Attempt      int
	State        State
	Err          error
}

// Fraction returns completion as a value in [0,1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// Result is the outcome for a single segment. Failed segments carry a
// placeholder text and a non-nil Err; blank segments pass through unchanged
// with a nil Err.
type Result struct {
	Index int
	Text  string
	Err   error
}

// Run aggregates all results of one translation request.
type Run struct {
	Results   []Result
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
	Usage     provider.Usage
	Canceled  bool
}

// Output joins all result texts in index order with a single space. Because
// every slot is filled before the run finishes, the join equals what strictly
// sequential processing would have produced regardless of call completion
// order.
func (r *Run) Output() string {
	texts := make([]string, len(r.Results))
	for i, res := range r.Results {
		texts[i] = res.Text
	}
	return strings.Join(texts, " ")
}

// FailedIndices returns the indices of segments whose translation failed.
func (r *Run) FailedIndices() []int {
	var failed []int
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res.Index)
		}
	}
	return failed
}

// FailureText is the placeholder recorded for a segment whose translation
// could not be completed.
func FailureText(err error) string {
	return fmt.Sprintf("[translation failed: %s]", apperrors.PublicMessage(err))
}

// Translate processes all segments and returns the finalized Run. One
// segment's failure never prevents the remaining segments from being
// attempted; cancellation stops scheduling and marks unprocessed segments as
// failed.
func (t *Translator) Translate(ctx context.Context, segments []segmenter.Segment, onProgress func(Progress)) (*Run, error) {
	start := time.Now()
	run := &Run{
		Results: make([]Result, len(segments)),
		Total:   len(segments),
	}
	t.usageMu.Lock()
	t.usage = provider.Usage{}
	t.usageMu.Unlock()
	if len(segments) == 0 {
		run.Duration = time.Since(start)
		return run, nil
	}

	// The result slice is the only shared state. Each index is written at
	// most once: blanks here, everything else by the worker owning the job.
	// done records which slots hold a final result, so the cancellation fill
	// never clobbers a completed translation that happens to be empty.
	var progressMu sync.Mutex
	done := make([]bool, len(segments))
	completed := 0
	report := func(p Progress) {
		if onProgress == nil {
			return
		}
		p.Completed = completed
		p.Total = len(segments)
		onProgress(p)
	}

	jobs := make(chan int, len(segments))
	progressMu.Lock()
	for i, seg := range segments {
		if seg.Blank {
			// Translating whitespace wastes a service call; pass it through
			// so reassembly still sees one result per segment.
			run.Results[i] = Result{Index: i, Text: seg.Text}
			done[i] = true
			run.Skipped++
			completed++
			report(Progress{SegmentIndex: i, State: StateSkipped})
			continue
		}
		jobs <- i
	}
	progressMu.Unlock()
	close(jobs)

	rateCh, stopRate := newRateLimiter(defaultQPS)
	defer stopRate()

	var wg sync.WaitGroup
	for w := 0; w < t.opts.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if delay := rampDelay(worker, t.opts.Concurrency, defaultRampUp); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if rateCh != nil {
					select {
					case <-ctx.Done():
						return
					case <-rateCh:
					}
				}
				t.translateSegment(ctx, segments[i], run, done, &progressMu, &completed, report)
			}
		}(w)
	}
	wg.Wait()

	if ctx.Err() != nil {
		run.Canceled = true
		// Unprocessed slots still need a result so the join stays total.
		progressMu.Lock()
		for i := range segments {
			if done[i] {
				continue
			}
			err := apperrors.New(apperrors.KindTransient, "Translation canceled before this segment was processed.", ctx.Err())
			run.Results[i] = Result{Index: i, Text: FailureText(err), Err: err}
		}
		report(Progress{SegmentIndex: -1, State: StateCanceled, Err: ctx.Err()})
		progressMu.Unlock()
	}

	for _, res := range run.Results {
		if res.Err != nil {
			run.Failed++
		}
	}
	run.Succeeded = run.Total - run.Failed - run.Skipped
	run.Duration = time.Since(start)
	t.usageMu.Lock()
	run.Usage = t.usage
	t.usageMu.Unlock()
	return run, nil
}

// translateSegment performs the external call for one segment with retries
// and records the result in its slot.
func (t *Translator) translateSegment(ctx context.Context, seg segmenter.Segment, run *Run, done []bool, progressMu *sync.Mutex, completed *int, report func(Progress)) {
	req := provider.Request{
		Text:           seg.Text,
		SourceLanguage: t.opts.SourceLanguage,
		TargetLanguage: t.opts.TargetLanguage,
		Instruction:    t.opts.Instruction,
		Temperature:    t.opts.Temperature,
	}

	var resp *provider.Response
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		progressMu.Lock()
		state := StateStarted
		if attempt > 1 {
			state = StateRetrying
		}
		report(Progress{SegmentIndex: seg.Index, Attempt: attempt, State: state, Err: err})
		progressMu.Unlock()

		resp, err = t.client.Translate(ctx, req)
		if err == nil {
			t.usageMu.Lock()
			t.usage.Add(resp.Usage)
			t.usageMu.Unlock()
			break
		}

		retry, backoff := retryDecision(ctx, err, attempt, maxAttempts)
		if !retry {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}

	progressMu.Lock()
	defer progressMu.Unlock()
	*completed++
	done[seg.Index] = true
	if err != nil {
		run.Results[seg.Index] = Result{Index: seg.Index, Text: FailureText(err), Err: err}
		report(Progress{SegmentIndex: seg.Index, State: StateFailed, Err: err})
		return
	}
	run.Results[seg.Index] = Result{Index: seg.Index, Text: resp.Text}
	report(Progress{SegmentIndex: seg.Index, State: StateCompleted})
}

// Usage returns the accumulated token usage.
func (t *Translator) Usage() provider.Usage {
	t.usageMu.Lock()
	defer t.usageMu.Unlock()
	return t.usage
}

func retryDecision(ctx context.Context, err error, attempt, max int) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}
	if attempt >= max {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}
	if !apperrors.IsRetryable(err) {
		return false, 0
	}
	base := 1 * time.Second
	maxBackoff := 20 * time.Second
	jitterMax := 1 * time.Second

	backoff := base << (attempt - 1)
	if apperrors.IsRateLimit(err) {
		backoff = backoff * 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(jitterMax)))
	return true, backoff + jitter
}

func newRateLimiter(qps int) (<-chan time.Time, func()) {
	if qps <= 0 {
		return nil, func() {}
	}
	interval := time.Second / time.Duration(qps)
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

func rampDelay(worker, concurrency int, ramp time.Duration) time.Duration {
	if ramp <= 0 || concurrency <= 1 {
		return 0
	}
	return time.Duration(int64(ramp) * int64(worker) / int64(concurrency-1))
}
