package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anyspecs/anyspecs/internal"
	"github.com/anyspecs/anyspecs/internal/compress"
	"github.com/anyspecs/anyspecs/internal/config"
	"github.com/anyspecs/anyspecs/internal/provider"
)

var (
	compressInput    string
	compressOutput   string
	compressProvider string
	compressAPIKey   string
	compressModel    string
	compressBaseURL  string
	compressGroupID  string
	compressWorkers  int
	compressRetries  int
	compressTimeout  time.Duration
	compressDryRun   bool
)

// compressCmd represents the compress command
var compressCmd = &cobra.Command{
	Use:   "compress",
	Short: "Summarize exported sessions into .specs context files",
	Long: `Send exported sessions to a remote AI provider and write one
<session-id>.specs.json artifact per session.

Sessions that already have an artifact in the output directory are skipped,
so re-running after a partial failure only processes what is missing.

Provider settings resolve in order: command-line flags, then the local
.env file, then ~/.anyspecs/ai_config.json, then built-in defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := config.Overrides{
			Provider: compressProvider,
			APIKey:   compressAPIKey,
			Model:    compressModel,
			BaseURL:  compressBaseURL,
			GroupID:  compressGroupID,
		}

		cfg, err := config.NewResolver().Resolve(overrides)
		if err != nil {
			return err
		}

		client, err := provider.New(cfg)
		if err != nil {
			return err
		}
		internal.LogInfo("Using provider %s (model %s)", client.Name(), client.Model())

		orchestrator := compress.New(client, compress.Options{
			InputDir:    compressInput,
			OutputDir:   compressOutput,
			Workers:     compressWorkers,
			MaxAttempts: compressRetries,
			UnitTimeout: compressTimeout,
			DryRun:      compressDryRun,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := orchestrator.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Compression complete: %d succeeded, %d failed, %d skipped\n",
			summary.Succeeded, summary.Failed, summary.Skipped)
		for _, failure := range summary.Failures {
			internal.LogError("Session %s: %v", failure.SessionID, failure.Err)
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d session(s) failed to compress", summary.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compressCmd)
	compressCmd.Flags().StringVarP(&compressInput, "input", "i", "./exports", "Directory of exported session json files")
	compressCmd.Flags().StringVarP(&compressOutput, "out", "o", "", "Artifact output directory (defaults to the input directory)")
	compressCmd.Flags().StringVarP(&compressProvider, "provider", "p", "", "AI provider (aihubmix, kimi, minimax, ppio)")
	compressCmd.Flags().StringVar(&compressAPIKey, "api-key", "", "API key override")
	compressCmd.Flags().StringVar(&compressModel, "model", "", "Model override")
	compressCmd.Flags().StringVar(&compressBaseURL, "base-url", "", "API base URL override")
	compressCmd.Flags().StringVar(&compressGroupID, "group-id", "", "Group ID (required by minimax)")
	compressCmd.Flags().IntVar(&compressWorkers, "workers", 0, "Concurrent provider calls (0 = default)")
	compressCmd.Flags().IntVar(&compressRetries, "retries", 0, "Max attempts per session for transient errors (0 = default)")
	compressCmd.Flags().DurationVar(&compressTimeout, "timeout", 0, "Per-session provider call timeout (0 = default)")
	compressCmd.Flags().BoolVar(&compressDryRun, "dry-run", false, "Build request payloads without calling the provider")
}
