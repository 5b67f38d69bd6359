// Package cohere implements the provider.Translator contract against the
// Cohere Chat v2 API, which hosts the Aya Expanse multilingual models.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/oukeidos/loct/internal/apperrors"
	"github.com/oukeidos/loct/internal/httpclient"
	"github.com/oukeidos/loct/internal/metadata"
	"github.com/oukeidos/loct/internal/provider"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Message struct {
		Content []contentItem `json:"content"`
	} `json:"message"`
	Usage struct {
		BilledUnits struct {
			InputTokens  float64 `json:"input_tokens"`
			OutputTokens float64 `json:"output_tokens"`
		} `json:"billed_units"`
		Tokens struct {
			InputTokens  float64 `json:"input_tokens"`
			OutputTokens float64 `json:"output_tokens"`
		} `json:"tokens"`
	} `json:"usage"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorEnvelope struct {
	Message string `json:"message"`
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	// maxTokens caps the output budget per segment call.
	maxTokens int
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   "https://api.cohere.com/v2",
		maxTokens: metadata.MaxOutputTokens(model),
	}
}

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string {
	return c.model
}

var _ provider.Translator = (*Client)(nil)

// Translate sends one segment through the chat endpoint. The instruction
// context becomes the system message; the segment text is the sole user
// message.
func (c *Client) Translate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: req.Text},
		},
		Temperature: req.Temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	client := httpclient.GetDefaultClient()
	respBody, resp, err := httpclient.DoAndRead(client, httpReq)
	if err != nil {
		return nil, apperrors.New(
			apperrors.KindTransient,
			"Cohere request failed due to a temporary network/runtime error.",
			fmt.Errorf("request failed: %w", err),
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyCohereError(resp.StatusCode, resp.Status, parseErrorMessage(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, apperrors.New(
			apperrors.KindValidation,
			"Cohere response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err),
		)
	}

	text := extractText(result)
	if text == "" {
		return nil, apperrors.New(
			apperrors.KindValidation,
			"Cohere response contained no text content.",
			fmt.Errorf("empty content in response id %s", result.ID),
		)
	}

	usage := provider.Usage{
		InputTokens:  int(result.Usage.BilledUnits.InputTokens),
		OutputTokens: int(result.Usage.BilledUnits.OutputTokens),
	}
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		usage.InputTokens = int(result.Usage.Tokens.InputTokens)
		usage.OutputTokens = int(result.Usage.Tokens.OutputTokens)
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	slog.Debug("Cohere API Response", "status", resp.Status, "usage_total", usage.TotalTokens, "response_id", result.ID)

	return &provider.Response{Text: text, Usage: usage}, nil
}

// Close is a no-op; the HTTP client is shared.
func (c *Client) Close() error {
	return nil
}

func systemPrompt(req provider.Request) string {
	return fmt.Sprintf("%s Translate the following %s text into %s:",
		req.Instruction, req.SourceLanguage, req.TargetLanguage)
}

func extractText(result chatResponse) string {
	var combined string
	for _, item := range result.Message.Content {
		if item.Type != "" && item.Type != "text" {
			continue
		}
		combined += item.Text
	}
	return combined
}

func parseErrorMessage(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Message
}

func classifyCohereError(statusCode int, status, message string) error {
	cause := fmt.Errorf("cohere status=%s message=%s", status, message)

	switch statusCode {
	case http.StatusTooManyRequests:
		return apperrors.New(
			apperrors.KindRateLimit,
			"Cohere API rate limit exceeded (429): please try again later.",
			cause,
		)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(
			apperrors.KindAuth,
			fmt.Sprintf("Cohere API authentication/authorization failed (%d): please verify your API key.", statusCode),
			cause,
		)
	case http.StatusNotFound:
		return apperrors.New(
			apperrors.KindBadRequest,
			"Cohere model not found or no access (404).",
			cause,
		)
	default:
		if statusCode >= 500 {
			return apperrors.New(
				apperrors.KindTransient,
				fmt.Sprintf("Cohere server error (%d): please try again later.", statusCode),
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			fmt.Sprintf("Cohere API error (%d): %s", statusCode, status),
			cause,
		)
	}
}
