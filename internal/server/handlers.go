package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"replykit/internal/articulation"
	"replykit/internal/logging"
	"replykit/internal/transport"
)

// slowBatch is the batch duration above which a warning is logged.
const slowBatch = 500 * time.Millisecond

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.cfg.Version})
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.processor.Process(req.Raw))
}

func (s *Server) handleNormalizeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Items) > s.cfg.Server.MaxBatchItems {
		writeErr(w, http.StatusBadRequest, "batch_too_large",
			fmt.Sprintf("batch has %d items, limit is %d", len(req.Items), s.cfg.Server.MaxBatchItems))
		return
	}

	defer logging.StartTimer(logging.CategoryServer, fmt.Sprintf("batch of %d", len(req.Items))).StopWithThreshold(slowBatch)

	results := make([]*articulation.ArticulationResult, len(req.Items))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.cfg.Server.BatchConcurrency)
	for i, raw := range req.Items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.processor.Process(raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.ServerError("batch aborted after client went away: %v", err)
		writeErr(w, http.StatusServiceUnavailable, "request_cancelled", err.Error())
		return
	}

	logging.Server("normalized batch of %d items", len(results))
	writeJSON(w, http.StatusOK, BatchResponse{Results: results})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeErr(w, http.StatusBadRequest, "invalid_request", "prompt is required")
		return
	}

	system, err := s.prompt.Render(req.Vars)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_vars", err.Error())
		return
	}

	raw, err := s.client.Complete(r.Context(), system, req.Prompt)
	if err != nil {
		logging.ServerError("ask failed request_id=%s: %v", RequestIDFrom(r.Context()), err)
		if transport.IsTimeout(err) {
			writeErr(w, http.StatusGatewayTimeout, "upstream_timeout", err.Error())
			return
		}
		writeErr(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{
		Provider:           s.client.Provider(),
		ArticulationResult: s.processor.Process(raw),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.processor.Stats())
}

// decode reads a size-limited JSON body into v, answering 400 or 413 itself
// when it fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeErr(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, APIErrorBody{Error: APIError{Code: errCode, Message: message}})
}
