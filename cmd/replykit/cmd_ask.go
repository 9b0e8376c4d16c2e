package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"replykit/internal/prompt"
	"replykit/internal/transport"
)

func newAskCmd() *cobra.Command {
	var (
		asJSON bool
		vars   map[string]string
	)
	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Ask the configured model and render the normalized reply",
		Long: `Sends the prompt to the configured provider (llm.provider) with the system
prompt rendered from llm.prompt_template, then normalizes and renders the reply.

Example:
  replykit ask "show me a hello world in go" --var tone=brief`,
		Args: cobra.MinimumNArgs(1),
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

			tv := map[string]any{"app": cfg.Name}
			for k, v := range vars {
				tv[k] = v
			}
			system, err := tmpl.Render(tv)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			userPrompt := joinArgs(args)
			logger.Info("asking model",
				zap.String("provider", client.Provider()),
				zap.String("template", tmpl.Name),
				zap.Int("prompt_len", len(userPrompt)))

			raw, err := client.Complete(ctx, system, userPrompt)
			if err != nil {
				if transport.IsTimeout(err) {
					return fmt.Errorf("model did not answer in time: %w", err)
				}
				return err
			}

			res := newProcessor(cfg).Process(raw)
			logger.Debug("reply processed", zap.String("method", string(res.ParseMethod)), zap.Int("layers", res.Layers))
			if asJSON {
				return writeJSON(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), newRenderer().Render(res.Segments))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the processed reply as JSON")
	cmd.Flags().StringToStringVar(&vars, "var", nil, "Prompt template variable (key=value, repeatable)")
	return cmd
}
