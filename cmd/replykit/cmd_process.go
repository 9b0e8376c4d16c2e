package main

import (
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"replykit/cmd/replykit/ui"
	"replykit/internal/articulation"
)

func newExtractCmd() *cobra.Command {
	var showMethod bool
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Print the normalized display text of a raw reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := processInput(cmd, args)
			if err != nil {
				return err
			}
			if showMethod {
				fmt.Fprintf(cmd.ErrOrStderr(), "method=%s layers=%d fenced=%v\n", res.ParseMethod, res.Layers, res.Fenced)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Surface)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showMethod, "method", false, "Print the parse method to stderr")
	return cmd
}

func newSegmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segment [file|-]",
		Short: "Print the segments of a raw reply as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := processInput(cmd, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd, res.Segments)
		},
	}
}

func newRenderCmd() *cobra.Command {
	var copyBlock int
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a raw reply for the terminal",
		Long: `Renders code blocks in framed boxes with a copy hint and links as
"label → target". --copy N also copies code block N to the clipboard.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := processInput(cmd, args)
			if err != nil {
				return err
			}
			r := newRenderer()
			fmt.Fprintln(cmd.OutOrStdout(), r.Render(res.Segments))

			if copyBlock == 0 {
				return nil
			}
			blocks := articulation.CodeBlocks(res.Segments)
			if copyBlock < 0 || copyBlock > len(blocks) {
				return fmt.Errorf("no code block #%d (reply has %d)", copyBlock, len(blocks))
			}
			var btn ui.CopyButton
			if _, err := btn.Copy(blocks[copyBlock-1].Code); err != nil {
				return fmt.Errorf("failed to copy code block #%d: %w", copyBlock, err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), r.Styles().Success.Render(fmt.Sprintf("Copied block #%d to clipboard", copyBlock)))
			return nil
		},
	}
	cmd.Flags().IntVar(&copyBlock, "copy", 0, "Copy code block N (1-based) to the clipboard")
	return cmd
}

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view [file|-]",
		Short: "Browse a raw reply interactively",
		Long: `Opens an interactive viewer. tab/shift+tab move between code blocks and
links, c copies the focused block, enter opens the focused link (its target
is printed on exit), q quits.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := processInput(cmd, args)
			if err != nil {
				return err
			}

			var navigated string
			viewer := ui.NewViewer(res.Segments, newRenderer(), ui.ViewerOptions{
				ResetDelay: cfg.GetCopyResetDelay(),
				Actions: ui.LinkActions{
					Navigate: func(target string) { navigated = target },
				},
			})

			opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithOutput(cmd.OutOrStdout())}
			if len(args) == 0 || args[0] == "-" {
				// stdin carried the reply, so keys come from the terminal.
				opts = append(opts, tea.WithInputTTY())
			}
			if _, err := tea.NewProgram(viewer, opts...).Run(); err != nil {
				return fmt.Errorf("viewer failed: %w", err)
			}

			if navigated != "" {
				logger.Debug("link activated", zap.String("target", navigated))
				fmt.Fprintln(cmd.OutOrStdout(), navigated)
			}
			return nil
		},
	}
}

func newRenderer() *ui.Renderer {
	return ui.NewRenderer(ui.RenderOptions{
		Theme:    cfg.Render.Theme,
		Markdown: cfg.Render.Markdown,
		WordWrap: cfg.Render.WordWrap,
	})
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
