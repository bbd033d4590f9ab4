// Package genai provides GenAI-assisted form authoring using the OpenAI API.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/formweave/formweave/internal/models"
)

// completionService defines the minimal interface for chat completions.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion service for suggesting form fields.
type Client struct {
	chat completionService
}

// NewClient initializes a new GenAI client using the OPENAI_API_KEY
// environment variable.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{chat: &cli.Chat.Completions}, nil
}

const suggestSystemPrompt = `You are a form design assistant. Given a plain-language description of a form, respond with a JSON array of field definitions. Each element must be an object with keys: "fieldKey" (camelCase string), "label" (string), "dataType" (one of "string", "number", "boolean"), "inputWidget" (one of "text", "textarea", "number", "checkbox", "select", "radio", "multiselect", "date"), "required" (boolean), and optionally "options" (array of {"label","value"} objects, required for select, radio and multiselect). Respond with the JSON array only, no prose and no code fences.`

// SuggestFields asks the model to propose field definitions for a form
// described in plain language. The returned fields are validated before being
// handed back; a response that fails validation is an error, not a partial
// result.
func (c *Client) SuggestFields(ctx context.Context, description string) ([]models.FieldDefinition, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("description is empty")
	}

	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(suggestSystemPrompt),
			openai.UserMessage(description),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	slog.Debug("Client.SuggestFields: model responded", "bytes", len(content))

	var fields []models.FieldDefinition
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, fmt.Errorf("model response is not a field array: %w", err)
	}
	for i := range fields {
		if err := fields[i].Validate(); err != nil {
			return nil, fmt.Errorf("suggested field %q is invalid: %w", fields[i].FieldKey, err)
		}
	}
	return fields, nil
}

// stripCodeFence removes a surrounding markdown code fence if the model added
// one despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
