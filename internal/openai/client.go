// Package openai implements the provider.Translator contract for
// OpenAI-compatible chat completion endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/oukeidos/loct/internal/apperrors"
	"github.com/oukeidos/loct/internal/metadata"
	"github.com/oukeidos/loct/internal/provider"
)

type Client struct {
	client    *gopenai.Client
	model     string
	maxTokens int
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		client:    gopenai.NewClient(apiKey),
		model:     model,
		maxTokens: metadata.MaxOutputTokens(model),
	}
}

var _ provider.Translator = (*Client)(nil)

func (c *Client) Translate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []gopenai.ChatCompletionMessage{
			{
				Role: gopenai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("%s Translate the following %s text into %s:",
					req.Instruction, req.SourceLanguage, req.TargetLanguage),
			},
			{
				Role:    gopenai.ChatMessageRoleUser,
				Content: req.Text,
			},
		},
		Temperature: req.Temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.New(
			apperrors.KindValidation,
			"OpenAI response contained no choices.",
			fmt.Errorf("empty choices in response id %s", resp.ID),
		)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, apperrors.New(
			apperrors.KindValidation,
			"OpenAI response contained no text content.",
			fmt.Errorf("empty content in response id %s", resp.ID),
		)
	}

	return &provider.Response{
		Text: text,
		Usage: provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// Close is a no-op; the SDK client holds no resources requiring shutdown.
func (c *Client) Close() error {
	return nil
}

func classifyOpenAIError(err error) error {
	wrapped := fmt.Errorf("openai chat completion failed: %w", err)

	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return apperrors.New(apperrors.KindRateLimit, "OpenAI API rate limit exceeded (429): please try again later.", wrapped)
		case 401, 403:
			return apperrors.New(apperrors.KindAuth, fmt.Sprintf("OpenAI API authentication/authorization failed (%d).", apiErr.HTTPStatusCode), wrapped)
		case 404:
			return apperrors.New(apperrors.KindBadRequest, "The model does not exist or you do not have access to it.", wrapped)
		default:
			if apiErr.HTTPStatusCode >= 500 {
				return apperrors.New(apperrors.KindTransient, fmt.Sprintf("OpenAI server error (%d): please try again later.", apiErr.HTTPStatusCode), wrapped)
			}
			return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("OpenAI API error (%d).", apiErr.HTTPStatusCode), wrapped)
		}
	}

	// Transport failures are usually transient.
	return apperrors.New(apperrors.KindTransient, "OpenAI request failed due to a temporary network/runtime error.", wrapped)
}
