package pipeline

import (
	"time"

	"github.com/oukeidos/loct/internal/provider"
)

// Status is the terminal state of a translation run.
type Status string

const (
	StatusSuccess        Status = "Success"
	StatusPartialSuccess Status = "Partial Success"
	StatusFailure        Status = "Failure"
	StatusSkipped        Status = "Skipped"
)

// RunResult contains structured outputs from RunTranslation.
type RunResult struct {
	Status     Status
	OutputPath string
	Usage      provider.Usage

	InputChars  int
	OutputChars int

	TotalSegments   int
	FailedSegments  int
	SkippedSegments int
	Duration        time.Duration
	Canceled        bool
}

func statusFor(failed, translatable int) Status {
	switch {
	case translatable == 0:
		return StatusSuccess
	case failed == 0:
		return StatusSuccess
	case failed < translatable:
		return StatusPartialSuccess
	default:
		return StatusFailure
	}
}
