package metadata

// ModelSpec describes a known translation model: its capacity limits and
// list pricing, used for the pre-run segment preview and the post-run cost
// estimate. The recommended segment size is deliberately small relative to
// the context window so worst-case output truncation stays bounded per
// segment.
type ModelSpec struct {
	ID                     string
	Label                  string
	Provider               string
	ContextLength          int
	MaxOutputTokens        int
	RecommendedSegmentSize int
	InputPerMillion        float64
	OutputPerMillion       float64
}

// DefaultModelID is the model the original deployment runs against.
const DefaultModelID = "c4ai-aya-expanse-32b"

var Models = []ModelSpec{
	{
		ID:                     "c4ai-aya-expanse-32b",
		Label:                  "Aya Expanse 32B",
		Provider:               "cohere",
		ContextLength:          131072,
		MaxOutputTokens:        4096,
		RecommendedSegmentSize: 2000,
		InputPerMillion:        0.50,
		OutputPerMillion:       1.50,
	},
	{
		ID:                     "c4ai-aya-expanse-8b",
		Label:                  "Aya Expanse 8B",
		Provider:               "cohere",
		ContextLength:          8192,
		MaxOutputTokens:        4096,
		RecommendedSegmentSize: 1000,
		InputPerMillion:        0.50,
		OutputPerMillion:       1.50,
	},
	{
		ID:                     "gemini-3-flash-preview",
		Label:                  "Gemini 3 Flash (preview)",
		Provider:               "gemini",
		ContextLength:          1048576,
		MaxOutputTokens:        65536,
		RecommendedSegmentSize: 2000,
		InputPerMillion:        0.50,
		OutputPerMillion:       3.00,
	},
	{
		ID:                     "gpt-4o-mini",
		Label:                  "GPT-4o mini",
		Provider:               "openai",
		ContextLength:          128000,
		MaxOutputTokens:        16384,
		RecommendedSegmentSize: 2000,
		InputPerMillion:        0.15,
		OutputPerMillion:       0.60,
	},
}

const (
	DefaultInputPerMillion  = 1.00
	DefaultOutputPerMillion = 3.00
	// FallbackMaxOutputTokens is used for models not in the registry.
	FallbackMaxOutputTokens = 4096
	// FallbackSegmentSize is used for models not in the registry.
	FallbackSegmentSize = 2000
)

// Lookup returns the spec for a model ID, or false for unknown models.
func Lookup(modelID string) (ModelSpec, bool) {
	for _, m := range Models {
		if m.ID == modelID {
			return m, true
		}
	}
	return ModelSpec{}, false
}

// MaxOutputTokens returns the output budget for a model, falling back to a
// conservative default for unknown IDs.
func MaxOutputTokens(modelID string) int {
	if m, ok := Lookup(modelID); ok {
		return m.MaxOutputTokens
	}
	return FallbackMaxOutputTokens
}

// EstimateCost converts token usage into a dollar estimate.
func EstimateCost(modelID string, inputTokens, outputTokens int) float64 {
	inRate := DefaultInputPerMillion
	outRate := DefaultOutputPerMillion
	if m, ok := Lookup(modelID); ok {
		inRate = m.InputPerMillion
		outRate = m.OutputPerMillion
	}
	return (float64(inputTokens)/1_000_000)*inRate + (float64(outputTokens)/1_000_000)*outRate
}

// ModelIDs returns the registry IDs in declaration order.
func ModelIDs() []string {
	ids := make([]string, 0, len(Models))
	for _, m := range Models {
		ids = append(ids, m.ID)
	}
	return ids
}
