package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"replykit/internal/config"
	"replykit/internal/logging"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements LLMClient for the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiClient{client: client, model: model, timeout: cfg.GetTimeout()}, nil
}

func (c *GeminiClient) Provider() string { return "gemini" }

// Complete sends a prompt with a system instruction.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	logging.APIDebug("[Gemini] Complete: model=%s system_len=%d user_len=%d", c.model, len(systemPrompt), len(userPrompt))

	var gc *genai.GenerateContentConfig
	if systemPrompt != "" {
		gc = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), gc)
	if err != nil {
		logging.APIError("[Gemini] Complete: failed after %v: %v", time.Since(startTime), err)
		status := 0
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		return "", &TransportError{Provider: c.Provider(), Op: "generate content", StatusCode: status, Err: err}
	}

	response := resp.Text()
	if response == "" {
		logging.APIError("[Gemini] Complete: empty response")
		return "", &TransportError{Provider: c.Provider(), Op: "generate content", Err: errors.New("no text in response")}
	}

	logging.API("[Gemini] Complete: completed in %v response_len=%d", time.Since(startTime), len(response))
	return response, nil
}
