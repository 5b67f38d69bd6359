// Package provider defines the boundary between the translation
// orchestrator and the external model services, plus shared request and
// response types implemented by the cohere, gemini and openai clients.
package provider

import "context"

// Request carries one segment through a translation call.
type Request struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	// Instruction is the natural-language directive prepended to every
	// request to steer tone and register.
	Instruction string
	Temperature float32
}

// Usage holds token accounting reported by the service.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Add accumulates usage from another call.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Response is the translated text for a single request.
type Response struct {
	Text  string
	Usage Usage
}

// Translator is the sole external dependency of the orchestrator. One call
// translates exactly one segment. Implementations classify failures through
// the apperrors kinds so the retry policy can tell transient conditions from
// permanent ones.
type Translator interface {
	Translate(ctx context.Context, req Request) (*Response, error)
	Close() error
}
