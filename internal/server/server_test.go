package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"replykit/internal/articulation"
	"replykit/internal/config"
	"replykit/internal/transport"
)

type stubClient struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (c *stubClient) Provider() string { return "stub" }

func (c *stubClient) Complete(_ context.Context, system, user string) (string, error) {
	c.lastSystem, c.lastUser = system, user
	return c.reply, c.err
}

func newTestServer(t *testing.T, opts Options) (*Server, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.MaxBatchItems = 5
	cfg.Server.MaxBodyBytes = 4096
	return New(cfg, opts), cfg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeObject(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body APIErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHealthz(t *testing.T) {
	s, cfg := newTestServer(t, Options{})
	w := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "ok", "version": cfg.Version}, decodeObject(t, w))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDPropagated(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestNormalize(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	raw := `{"type":"info","message":"See [Docs](/docs)\n` + "```" + `go\nx := 1\n` + "```" + `"}`
	body, err := json.Marshal(NormalizeRequest{Raw: raw})
	require.NoError(t, err)

	w := do(t, s.Handler(), http.MethodPost, "/v1/messages/normalize", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decodeObject(t, w)
	assert.Equal(t, "json", out["method"])
	assert.Equal(t, float64(1), out["layers"])
	assert.Equal(t, "See [Docs](/docs)\n```go\nx := 1\n```", out["text"])

	segs := out["segments"].([]any)
	require.Len(t, segs, 2)
	assert.Equal(t, map[string]any{
		"kind": "text",
		"runs": []any{
			map[string]any{"kind": "plain", "text": "See "},
			map[string]any{"kind": "link", "label": "Docs", "target": "/docs"},
		},
	}, segs[0])
	assert.Equal(t, map[string]any{"kind": "code", "language": "go", "code": "x := 1"}, segs[1])
}

func TestNormalize_EmptyRaw(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	w := do(t, s.Handler(), http.MethodPost, "/v1/messages/normalize", `{"raw":"   "}`)
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeObject(t, w)
	assert.Equal(t, "empty", out["method"])
	assert.Equal(t, []any{}, out["segments"])
}

func TestNormalize_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"malformed", `{"raw":`, http.StatusBadRequest, "invalid_json"},
		{"unknown_field", `{"text":"x"}`, http.StatusBadRequest, "invalid_json"},
		{"too_large", `{"raw":"` + strings.Repeat("a", 5000) + `"}`, http.StatusRequestEntityTooLarge, "body_too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), http.MethodPost, "/v1/messages/normalize", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, w))
		})
	}
}

func TestNormalizeBatch(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	items := []string{
		`{"type":"info","message":"one"}`,
		"plain two",
		`noise {"type":"info","message":"three"} noise`,
		"",
	}
	body, err := json.Marshal(BatchRequest{Items: items})
	require.NoError(t, err)

	w := do(t, s.Handler(), http.MethodPost, "/v1/messages/normalize/batch", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Results []struct {
			Text   string `json:"text"`
			Method string `json:"method"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Results, 4)
	assert.Equal(t, "one", out.Results[0].Text)
	assert.Equal(t, "plain two", out.Results[1].Text)
	assert.Equal(t, "three", out.Results[2].Text)
	assert.Equal(t, "json_scanned", out.Results[2].Method)
	assert.Equal(t, "empty", out.Results[3].Method)
}

func TestNormalizeBatch_TooMany(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	body, err := json.Marshal(BatchRequest{Items: make([]string, 6)})
	require.NoError(t, err)

	w := do(t, s.Handler(), http.MethodPost, "/v1/messages/normalize/batch", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "batch_too_large", errorCode(t, w))
}

func TestAsk(t *testing.T) {
	client := &stubClient{reply: `{"type":"info","message":"{\"type\":\"info\",\"message\":\"Hi\"}"}`}
	s, _ := newTestServer(t, Options{Client: client})

	w := do(t, s.Handler(), http.MethodPost, "/v1/messages/ask",
		`{"prompt":"hello","vars":{"app":"Acme","routes":["/help"]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decodeObject(t, w)
	assert.Equal(t, "stub", out["provider"])
	assert.Equal(t, "Hi", out["text"])
	assert.Equal(t, float64(2), out["layers"])

	assert.Equal(t, "hello", client.lastUser)
	assert.Contains(t, client.lastSystem, "embedded in Acme")
	assert.Contains(t, client.lastSystem, "- /help")
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name     string
		client   *stubClient
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "empty_prompt",
			client:   &stubClient{},
			body:     `{"prompt":"  "}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "upstream_error",
			client:   &stubClient{err: &transport.TransportError{Provider: "stub", Op: "complete", StatusCode: 500, Err: errors.New("boom")}},
			body:     `{"prompt":"hi"}`,
			wantCode: http.StatusBadGateway,
			wantErr:  "upstream_error",
		},
		{
			name:     "upstream_timeout",
			client:   &stubClient{err: fmt.Errorf("call: %w", context.DeadlineExceeded)},
			body:     `{"prompt":"hi"}`,
			wantCode: http.StatusGatewayTimeout,
			wantErr:  "upstream_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, Options{Client: tt.client})
			w := do(t, s.Handler(), http.MethodPost, "/v1/messages/ask", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, w))
		})
	}
}

func TestStats(t *testing.T) {
	rp := articulation.NewResponseProcessor()
	s, _ := newTestServer(t, Options{Processor: rp})

	do(t, s.Handler(), http.MethodPost, "/v1/messages/normalize", `{"raw":"{\"message\":\"x\"}"}`)
	do(t, s.Handler(), http.MethodPost, "/v1/messages/normalize", `{"raw":"plain"}`)

	w := do(t, s.Handler(), http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats articulation.ProcessorStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalProcessed)
	assert.Equal(t, 1, stats.ByMethod[articulation.MethodJSON])
	assert.Equal(t, 1, stats.ByMethod[articulation.MethodPlain])
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s, _ := newTestServer(t, Options{Logger: zap.New(core)})

	do(t, s.Handler(), http.MethodGet, "/healthz", "")
	do(t, s.Handler(), http.MethodGet, "/nope", "")

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "/healthz", entries[0].ContextMap()["path"])
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, int64(http.StatusNotFound), entries[1].ContextMap()["status"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestServe_GracefulShutdown(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	tr := &http.Transport{DisableKeepAlives: true}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	tr.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
