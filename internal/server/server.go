// Package server exposes the normalization engine over HTTP: raw model output
// in, escape-normalized text and typed segments out.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"replykit/internal/articulation"
	"replykit/internal/config"
	"replykit/internal/logging"
	"replykit/internal/prompt"
	"replykit/internal/transport"
)

// Server is the server-side response handler.
type Server struct {
	cfg       *config.Config
	processor *articulation.ResponseProcessor
	client    transport.LLMClient
	prompt    *prompt.Template
	log       *zap.Logger
	router    http.Handler
}

// Options carries the collaborators of a Server. Nil fields get defaults:
// a fresh processor, the echo client, the built-in template and a no-op logger.
type Options struct {
	Processor *articulation.ResponseProcessor
	Client    transport.LLMClient
	Prompt    *prompt.Template
	Logger    *zap.Logger
}

// New creates a Server for cfg.
func New(cfg *config.Config, opts Options) *Server {
	s := &Server{
		cfg:       cfg,
		processor: opts.Processor,
		client:    opts.Client,
		prompt:    opts.Prompt,
		log:       opts.Logger,
	}
	if s.processor == nil {
		s.processor = articulation.NewResponseProcessor()
	}
	if s.client == nil {
		s.client = transport.NewEchoClient()
	}
	if s.prompt == nil {
		s.prompt = prompt.Default()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(api chi.Router) {
		api.Post("/messages/normalize", s.handleNormalize)
		api.Post("/messages/normalize/batch", s.handleNormalizeBatch)
		api.Post("/messages/ask", s.handleAsk)
		api.Get("/stats", s.handleStats)
	})

	return r
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		ErrorLog:          zap.NewStdLog(s.log),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.Info("listening", zap.String("addr", ln.Addr().String()), zap.String("provider", s.client.Provider()))
	logging.Server("listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()

	start := time.Now()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ServerError("shutdown incomplete after %v: %v", time.Since(start), err)
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	s.log.Info("stopped", zap.Duration("shutdown", time.Since(start)))
	return nil
}
