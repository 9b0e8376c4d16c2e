// Package transport implements the language-model round-trip that produces
// the raw responses replykit normalizes. The engine never calls a provider
// itself; callers fetch a complete response here and hand the string on.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"replykit/internal/config"
)

// LLMClient is the interface for language-model providers.
type LLMClient interface {
	// Complete sends a system and user prompt and returns the full raw reply.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Provider names the backend, e.g. "openai".
	Provider() string
}

// TransportError describes a failed provider call.
type TransportError struct {
	Provider   string
	Op         string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a deadline or timeout failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode == http.StatusGatewayTimeout || te.StatusCode == http.StatusRequestTimeout
	}
	return false
}

// withDefaultTimeout applies timeout when ctx carries no deadline.
func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// NewClient creates the client selected by cfg.Provider.
func NewClient(cfg config.LLMConfig) (LLMClient, error) {
	switch cfg.Provider {
	case "openai":
		c, err := NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		c, err := NewGeminiClient(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "echo", "":
		return NewEchoClient(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (valid: %v)", cfg.Provider, config.ValidProviders)
	}
}
