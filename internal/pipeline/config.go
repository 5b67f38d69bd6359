package pipeline

import (
	"fmt"

	"github.com/oukeidos/loct/internal/apperrors"
	"github.com/oukeidos/loct/internal/segmenter"
	"github.com/oukeidos/loct/internal/translator"
)

// Supported provider names.
const (
	ProviderCohere = "cohere"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all configuration required for running a translation.
type Config struct {
	// IO Paths. OutputPath may be empty; a name embedding the language
	// labels is then derived from the input path.
	InputPath  string
	OutputPath string
	LogPath    string // Optional: for JSONL logs

	// API Configuration
	Provider string
	APIKey   string
	Model    string

	// Processing Parameters
	Segmentation segmenter.Config
	Concurrency  int
	Temperature  float32
	// Instruction is the natural-language directive steering tone and
	// register, prepended to every segment request.
	Instruction string

	// Flags
	Overwrite bool // If true, overwrite output file without asking

	// Languages (code or English name)
	SourceLang string
	TargetLang string

	// Callbacks
	// OnProgress is called with translation progress updates.
	OnProgress func(translator.Progress)

	// OnConfirmOverwrite is called when the output file exists.
	// It should return true if the file should be overwritten.
	OnConfirmOverwrite func(path string) bool
}

const (
	MinConcurrency = 1
	MaxConcurrency = 20
	MaxSegmentSize = 10000
)

func ClampConcurrency(value int) (int, bool) {
	if value < MinConcurrency {
		return MinConcurrency, true
	}
	if value > MaxConcurrency {
		return MaxConcurrency, true
	}
	return value, false
}

// Normalize applies safe bounds to config values and returns any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	if clamped, changed := ClampConcurrency(c.Concurrency); changed {
		notes = append(notes, fmt.Sprintf("concurrency clamped from %d to %d (max %d)", c.Concurrency, clamped, MaxConcurrency))
		c.Concurrency = clamped
	}
	if c.Segmentation.TargetSize > MaxSegmentSize {
		notes = append(notes, fmt.Sprintf("segment-size clamped from %d to %d (max %d)", c.Segmentation.TargetSize, MaxSegmentSize, MaxSegmentSize))
		c.Segmentation.TargetSize = MaxSegmentSize
	}
	if c.Provider == "" {
		c.Provider = ProviderCohere
	}
	return c, notes
}

// Validate checks the configuration. All violations are fatal and surface
// before any segment is processed.
func (c Config) Validate() error {
	if err := c.Segmentation.Validate(); err != nil {
		return err
	}
	if c.Concurrency <= 0 {
		return apperrors.Config(fmt.Errorf("concurrency must be greater than 0, got %d", c.Concurrency))
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return apperrors.Config(fmt.Errorf("temperature must be within [0,1], got %g", c.Temperature))
	}
	switch c.Provider {
	case ProviderCohere, ProviderGemini, ProviderOpenAI:
	default:
		return apperrors.Config(fmt.Errorf("unsupported provider: %s", c.Provider))
	}
	if c.APIKey == "" {
		return apperrors.Config(fmt.Errorf("API key is required"))
	}
	if c.Model == "" {
		return apperrors.Config(fmt.Errorf("model is required"))
	}
	return nil
}
