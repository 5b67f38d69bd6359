// Package segmenter splits long documents into bounded segments that
// respect sentence and word boundaries, so each segment can be sent to a
// translation model as one self-contained unit.
package segmenter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/oukeidos/loct/internal/apperrors"
)

// Boundary-preference thresholds, expressed as a fraction of TargetSize.
// A sentence terminator found past sentenceThreshold wins over everything;
// otherwise a whitespace past wordThreshold wins over a hard cut.
const (
	sentenceThreshold = 0.7
	wordThreshold     = 0.5
)

// Defaults sized for chat-style translation models.
const (
	DefaultTargetSize = 2000
	DefaultOverlap    = 50
)

// Config controls segment sizing.
type Config struct {
	// TargetSize is the maximum segment length in runes.
	TargetSize int
	// Overlap is the number of runes of lookback re-scanned when searching
	// for the next cut. Overlap biases cut selection; the emitted segments
	// always tile the document exactly and overlap content is never emitted
	// (and therefore never translated) twice.
	Overlap int
}

// Validate reports whether the config can produce a terminating segmentation.
func (c Config) Validate() error {
	if c.TargetSize <= 0 {
		return apperrors.Config(fmt.Errorf("target size must be greater than 0, got %d", c.TargetSize))
	}
	if c.Overlap < 0 {
		return apperrors.Config(fmt.Errorf("overlap must be 0 or greater, got %d", c.Overlap))
	}
	if c.Overlap >= c.TargetSize {
		return apperrors.Config(fmt.Errorf("overlap (%d) must be smaller than target size (%d)", c.Overlap, c.TargetSize))
	}
	return nil
}

// Segment is a bounded substring of the input document.
// Start and End are rune offsets into the original text.
type Segment struct {
	Index int
	Start int
	End   int
	Text  string
	// Blank marks segments whose text is whitespace-only. The orchestrator
	// passes them through untranslated instead of spending a service call.
	Blank bool
}

// Split divides text into an ordered sequence of segments.
// Empty input yields a nil slice; non-empty input always yields at least one
// segment. The sequence is finite for any valid config because every cut
// advances past the previous segment's end.
func Split(text string, cfg Config) ([]Segment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}
	if n <= cfg.TargetSize {
		return []Segment{makeSegment(0, runes, 0, n)}, nil
	}

	var segments []Segment
	start := 0
	for start < n {
		// The search window begins up to Overlap runes before the segment
		// start, inside already-emitted text. This biases the cut toward
		// boundaries visible in the lookback without re-emitting anything.
		winStart := start - cfg.Overlap
		if winStart < 0 {
			winStart = 0
		}
		winEnd := winStart + cfg.TargetSize
		if winEnd >= n {
			segments = append(segments, makeSegment(len(segments), runes, start, n))
			break
		}

		cut := findCut(runes, winStart, winEnd, start, cfg.TargetSize)
		// Trailing whitespace belongs to the segment that ends the sentence
		// or word, so every later segment starts at a printable rune.
		for cut < n && unicode.IsSpace(runes[cut]) {
			cut++
		}
		if cut >= n {
			segments = append(segments, makeSegment(len(segments), runes, start, n))
			break
		}

		segments = append(segments, makeSegment(len(segments), runes, start, cut))
		start = cut
	}

	return segments, nil
}

// findCut selects the end of the segment beginning at start, searching the
// window [winStart, winEnd). It prefers cutting just after the last sentence
// terminator, then just after the last whitespace, then the hard window edge.
func findCut(runes []rune, winStart, winEnd, start, targetSize int) int {
	lastSentence := -1
	lastSpace := -1
	for i := winStart; i < winEnd; i++ {
		switch {
		case isSentenceTerminator(runes[i]):
			lastSentence = i
		case unicode.IsSpace(runes[i]):
			lastSpace = i
		}
	}

	if lastSentence >= 0 &&
		float64(lastSentence-winStart) > float64(targetSize)*sentenceThreshold &&
		lastSentence+1 > start {
		return lastSentence + 1
	}
	if lastSpace >= 0 &&
		float64(lastSpace-winStart) > float64(targetSize)*wordThreshold &&
		lastSpace+1 > start {
		return lastSpace + 1
	}
	// Hard cut, mid-word split allowed as last resort. winEnd is always past
	// start because Overlap < TargetSize.
	return winEnd
}

func isSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func makeSegment(index int, runes []rune, start, end int) Segment {
	text := string(runes[start:end])
	return Segment{
		Index: index,
		Start: start,
		End:   end,
		Text:  text,
		Blank: strings.TrimSpace(text) == "",
	}
}

// Width returns the user-perceived character count of text. Grapheme clusters
// count as one, so combining marks and emoji do not inflate the size
// accounting shown to users.
func Width(text string) int {
	return uniseg.GraphemeClusterCount(text)
}

// EstimateCount approximates the number of segments produced for a document
// of n runes. Used for the pre-run preview only; boundary snapping can
// shorten strides, so the real count may run somewhat higher.
func EstimateCount(n int, cfg Config) int {
	if n <= 0 {
		return 0
	}
	if n <= cfg.TargetSize {
		return 1
	}
	stride := cfg.TargetSize - cfg.Overlap
	if stride <= 0 {
		return 1
	}
	return (n + stride - 1) / stride
}
