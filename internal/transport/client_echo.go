package transport

import "context"

// EchoClient returns the user prompt unchanged. It stands in for a provider
// offline and in tests.
type EchoClient struct{}

func NewEchoClient() *EchoClient { return &EchoClient{} }

func (*EchoClient) Provider() string { return "echo" }

func (*EchoClient) Complete(ctx context.Context, _, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &TransportError{Provider: "echo", Op: "complete", Err: err}
	}
	return userPrompt, nil
}
