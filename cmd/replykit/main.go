package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"replykit/internal/articulation"
	"replykit/internal/config"
	"replykit/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// newRootCmd builds the command tree. Tests build a fresh tree per run so
// flag values never leak between executions.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "replykit",
		Short: "replykit - normalize and segment language-model replies",
		Long: `replykit turns raw language-model output into display text and an ordered
list of code and text segments.

Raw output may be plain text, a JSON envelope ({"type":...,"message":...}),
an envelope wrapped in a markdown fence, or an envelope nested inside another
envelope's message. Every input yields something displayable.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zc := zap.NewProductionConfig()
			if verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config %s: %w", configPath, err)
			}
			if err := logging.Initialize(cfg.Logging.Options()); err != nil {
				return err
			}
			logging.Boot("config loaded from %s (provider=%s)", configPath, cfg.LLM.Provider)
			logger.Debug("replykit starting", zap.String("command", cmd.Name()), zap.String("config", configPath))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
			logging.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "replykit.yaml", "Config file (missing file uses defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Operation timeout (0 uses llm.timeout)")

	rootCmd.AddCommand(
		newExtractCmd(),
		newSegmentCmd(),
		newRenderCmd(),
		newViewCmd(),
		newAskCmd(),
		newServeCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newProcessor builds a ResponseProcessor from the articulation config.
func newProcessor(c *config.Config) *articulation.ResponseProcessor {
	rp := articulation.NewResponseProcessor()
	rp.Extractor = articulation.Extractor{PatternFallback: c.Articulation.PatternFallback}
	rp.MaxSurfaceLength = c.Articulation.MaxSurfaceLength
	return rp
}

// readInput reads the raw reply from args[0], or from stdin when no file or
// "-" is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

// processInput reads and processes the command input.
func processInput(cmd *cobra.Command, args []string) (*articulation.ArticulationResult, error) {
	raw, err := readInput(cmd, args)
	if err != nil {
		return nil, err
	}
	res := newProcessor(cfg).Process(raw)
	logger.Debug("processed reply",
		zap.String("method", string(res.ParseMethod)),
		zap.Int("layers", res.Layers),
		zap.Int("segments", len(res.Segments)))
	for _, w := range res.Warnings {
		logger.Warn("articulation warning", zap.String("warning", w))
	}
	return res, nil
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
