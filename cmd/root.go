package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anyspecs/anyspecs/internal"
)

var (
	verbose     bool
	allProjects bool
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "anyspecs",
	Short: "Extract, export and compress AI chat sessions",
	Long: `A CLI tool to extract chat history from AI coding assistants and
compress it into portable .specs context files.

Supported sources:
  • cursor  - Cursor IDE chat sessions (state.vscdb)
  • claude  - Claude Code session logs (~/.claude/projects)
  • docs    - Loose document directories (Markdown, text)

Quick Start:
  anyspecs list                          # List sessions for this project
  anyspecs export --format json          # Export normalized sessions
  anyspecs compress --provider kimi      # Summarize exports into .specs.json
  anyspecs setup --list                  # Show configured AI providers`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&allProjects, "all-projects", false, "Include sessions from every project, not just the current directory")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
