package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anyspecs/anyspecs/internal"
	"github.com/anyspecs/anyspecs/internal/config"
)

var (
	setupList        bool
	setupReset       bool
	setupProvider    string
	setupAPIKey      string
	setupModel       string
	setupBaseURL     string
	setupGroupID     string
	setupTemperature float64
	setupMaxTokens   int
	setupWriteEnv    bool
)

// setupCmd represents the setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure AI providers for compression",
	Long: `Store provider credentials in ~/.anyspecs/ai_config.json.

The first provider configured with a credential becomes the default.
With --write-env, the resolved settings are also mirrored into ./.env as
ANYSPECS_AI_* keys, preserving unrelated lines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.FilePath()

		if setupReset {
			if err := config.Reset(path); err != nil {
				return fmt.Errorf("failed to reset configuration: %w", err)
			}
			fmt.Println("Configuration reset")
			return nil
		}

		if setupList {
			return printConfigured(path)
		}

		if setupProvider == "" {
			return fmt.Errorf("no provider given (use --provider, --list or --reset)")
		}

		ps := config.ProviderSettings{
			APIKey:  setupAPIKey,
			Model:   setupModel,
			BaseURL: setupBaseURL,
			GroupID: setupGroupID,
		}
		if cmd.Flags().Changed("temperature") {
			ps.Temperature = &setupTemperature
		}
		if cmd.Flags().Changed("max-tokens") {
			ps.MaxTokens = &setupMaxTokens
		}

		if err := config.SetProvider(path, setupProvider, ps); err != nil {
			return err
		}
		fmt.Printf("Saved %s configuration to %s\n", setupProvider, path)

		if setupWriteEnv {
			if err := config.WriteEnvFile(".env", setupProvider, ps); err != nil {
				internal.LogWarn("Failed to write .env: %v", err)
			} else {
				fmt.Println("Updated .env")
			}
		}
		return nil
	},
}

func printConfigured(path string) error {
	configured, err := config.ListConfigured(path)
	if err != nil {
		return err
	}
	if len(configured) == 0 {
		fmt.Println("No providers configured. Run 'anyspecs setup --provider <name> --api-key <key>'.")
		return nil
	}

	for _, p := range configured {
		marker := " "
		if p.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %s (model: %s)\n", marker, p.Name, p.Model)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVar(&setupList, "list", false, "List configured providers")
	setupCmd.Flags().BoolVar(&setupReset, "reset", false, "Delete the persisted configuration file")
	setupCmd.Flags().StringVarP(&setupProvider, "provider", "p", "", "Provider to configure (aihubmix, kimi, minimax, ppio)")
	setupCmd.Flags().StringVar(&setupAPIKey, "api-key", "", "API key")
	setupCmd.Flags().StringVar(&setupModel, "model", "", "Model name (defaults to the provider's built-in model)")
	setupCmd.Flags().StringVar(&setupBaseURL, "base-url", "", "API base URL")
	setupCmd.Flags().StringVar(&setupGroupID, "group-id", "", "Group ID (required by minimax)")
	setupCmd.Flags().Float64Var(&setupTemperature, "temperature", 0, "Sampling temperature")
	setupCmd.Flags().IntVar(&setupMaxTokens, "max-tokens", 0, "Completion token limit")
	setupCmd.Flags().BoolVar(&setupWriteEnv, "write-env", false, "Also mirror the settings into ./.env")
}
