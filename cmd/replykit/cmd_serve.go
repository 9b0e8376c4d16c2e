package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"replykit/internal/inbox"
	"replykit/internal/prompt"
	"replykit/internal/server"
	"replykit/internal/transport"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the normalization HTTP API",
		Long: `Starts the HTTP response handler on server.host:server.port.

Endpoints:
  GET  /healthz
  POST /v1/messages/normalize
  POST /v1/messages/normalize/batch
  POST /v1/messages/ask
  GET  /v1/stats

SIGINT or SIGTERM shuts the server down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateLLM(); err != nil {
				return err
			}
			client, err := transport.NewClient(cfg.LLM)
			if err != nil {
				return err
			}
			tmpl, err := prompt.LoadTemplate(cfg.LLM.PromptTemplate)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg, server.Options{
				Processor: newProcessor(cfg),
				Client:    client,
				Prompt:    tmpl,
				Logger:    logger,
			})
			logger.Info("serving", zap.String("addr", cfg.Addr()), zap.String("provider", client.Provider()))
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Normalize reply files dropped into a directory",
		Long: `Watches inbox.dir (or dir) and writes <name>.segments.json next to every
new or changed file with an inbox extension.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inboxCfg := cfg.Inbox
			if len(args) == 1 {
				inboxCfg.Dir = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := inbox.New(inboxCfg, newProcessor(cfg))
			logger.Info("watching", zap.String("dir", inboxCfg.Dir), zap.Strings("extensions", inboxCfg.Extensions))
			if err := w.Run(ctx); err != nil {
				return fmt.Errorf("watcher failed: %w", err)
			}
			st := w.Stats()
			logger.Info("watcher stopped", zap.Int("processed", st.Processed), zap.Int("errors", st.Errors))
			return nil
		},
	}
}
