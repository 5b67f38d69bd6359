// Package gemini implements the provider.Translator contract on top of the
// Gemini generative API.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/oukeidos/loct/internal/apperrors"
	"github.com/oukeidos/loct/internal/httpclient"
	"github.com/oukeidos/loct/internal/provider"
)

// Client handles communication with the Gemini API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string, modelName string) (*Client, error) {
	// Note: We avoid using option.WithHTTPClient because it interferes with the genai library's
	// internal header injection for API keys, causing 403 errors.
	// Instead, we enforce timeouts via context in the Translate method.
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Client{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

var _ provider.Translator = (*Client)(nil)

// Translate sends one segment to Gemini and returns the translated text.
// Safe for concurrent use: the shared model is never written after NewClient.
func (c *Client) Translate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	model := c.requestModel(req)
	resp, err := model.GenerateContent(ctx, genai.Text(req.Text))
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text, err := extractResponseText(resp)
	if err != nil {
		return nil, apperrors.Validation(err)
	}

	var usage provider.Usage
	if resp.UsageMetadata != nil {
		usage = provider.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return &provider.Response{Text: text, Usage: usage}, nil
}

// requestModel returns a per-call copy of the shared model carrying the
// request's system instruction and temperature. Workers call Translate in
// parallel, so the shared model must stay read-only here.
func (c *Client) requestModel(req provider.Request) *genai.GenerativeModel {
	model := *c.model
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(
			"%s Translate the following %s text into %s. Respond with the translation only.",
			req.Instruction, req.SourceLanguage, req.TargetLanguage,
		))},
	}
	temp := req.Temperature
	model.Temperature = &temp
	return &model
}

// Close closes the underlying genai client.
func (c *Client) Close() error {
	return c.client.Close()
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for i, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		var combined string
		for _, part := range candidate.Content.Parts {
			text, ok := part.(genai.Text)
			if !ok {
				continue
			}
			combined += string(text)
		}
		if combined != "" {
			return combined, nil
		}
		if i == len(resp.Candidates)-1 {
			break
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
