package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oai "github.com/sashabaranov/go-openai"

	"replykit/internal/config"
	"replykit/internal/logging"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient implements LLMClient for OpenAI-compatible chat APIs.
type OpenAIClient struct {
	client  *oai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a new OpenAI client. A configured base URL points it
// at any compatible endpoint.
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key not configured")
	}

	oc := oai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client:  oai.NewClientWithConfig(oc),
		model:   model,
		timeout: cfg.GetTimeout(),
	}, nil
}

func (c *OpenAIClient) Provider() string { return "openai" }

// Complete sends a prompt with a system message.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	logging.APIDebug("[OpenAI] Complete: model=%s system_len=%d user_len=%d", c.model, len(systemPrompt), len(userPrompt))

	var messages []oai.ChatCompletionMessage
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, oai.ChatCompletionMessage{
			Role:    oai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, oai.ChatCompletionMessage{
		Role:    oai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, oai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		logging.APIError("[OpenAI] Complete: failed after %v: %v", time.Since(startTime), err)
		return "", &TransportError{Provider: c.Provider(), Op: "chat completion", StatusCode: openAIStatus(err), Err: err}
	}

	if len(resp.Choices) == 0 {
		logging.APIError("[OpenAI] Complete: no completion returned")
		return "", &TransportError{Provider: c.Provider(), Op: "chat completion", Err: errors.New("no completion returned")}
	}

	response := resp.Choices[0].Message.Content
	logging.API("[OpenAI] Complete: completed in %v response_len=%d", time.Since(startTime), len(response))
	return response, nil
}

func openAIStatus(err error) int {
	var apiErr *oai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *oai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
