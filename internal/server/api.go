package server

import "replykit/internal/articulation"

// NormalizeRequest is the body of POST /v1/messages/normalize.
type NormalizeRequest struct {
	Raw string `json:"raw"`
}

// BatchRequest is the body of POST /v1/messages/normalize/batch.
type BatchRequest struct {
	Items []string `json:"items"`
}

// BatchResponse keeps results in input order.
type BatchResponse struct {
	Results []*articulation.ArticulationResult `json:"results"`
}

// AskRequest is the body of POST /v1/messages/ask.
type AskRequest struct {
	Prompt string         `json:"prompt"`
	Vars   map[string]any `json:"vars,omitempty"`
}

// AskResponse is a normalized model reply.
type AskResponse struct {
	Provider string `json:"provider"`
	*articulation.ArticulationResult
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// APIErrorBody wraps every error response.
type APIErrorBody struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
