// Package llm provides language model adapters.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"docqa/internal/port"
)

// Ensure OpenAILLM implements the interface.
var _ port.LLM = (*OpenAILLM)(nil)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for an OpenAI-compatible chat endpoint.
type Config struct {
	// APIKey is required unless BaseURL points at a server that ignores it.
	APIKey string

	// BaseURL overrides api.openai.com, e.g. for Ollama or a proxy.
	BaseURL string

	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAILLM calls the chat completions API.
type OpenAILLM struct {
	client      openai.Client
	model       string
	temperature float64
}

func NewOpenAILLM(cfg Config) (*OpenAILLM, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("LLM API key is required for api.openai.com")
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(2),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAILLM{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// NewFromEnv reads the API key from apiKeyEnv.
func NewFromEnv(apiKeyEnv string, cfg Config) (*OpenAILLM, error) {
	if cfg.APIKey == "" && apiKeyEnv != "" {
		cfg.APIKey = os.Getenv(apiKeyEnv)
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	return NewOpenAILLM(cfg)
}

func (l *OpenAILLM) params(systemPrompt, userPrompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(l.temperature),
	}
}

func (l *OpenAILLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := l.client.Chat.Completions.New(ctx, l.params(systemPrompt, userPrompt))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStructured requests strict JSON schema output and decodes it into out.
func (l *OpenAILLM) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, schema port.OutputSchema, out any) error {
	params := l.params(systemPrompt, userPrompt)
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        schema.Name,
				Description: openai.String(schema.Description),
				Schema:      schema.Schema,
				Strict:      openai.Bool(true),
			},
		},
	}

	resp, err := l.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("chat completion: no choices returned")
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return fmt.Errorf("model refused structured output: %s", msg.Refusal)
	}
	content := strings.TrimSpace(msg.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("decode %s: %w", schema.Name, err)
	}
	return nil
}

func (l *OpenAILLM) ModelName() string {
	return l.model
}
