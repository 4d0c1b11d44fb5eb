package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anyspecs/anyspecs/internal"
	"github.com/anyspecs/anyspecs/internal/export"
	"github.com/anyspecs/anyspecs/internal/session"
	"github.com/anyspecs/anyspecs/internal/source"
)

var (
	exportFormat    string
	exportDir       string
	exportSource    string
	exportProject   string
	exportSessionID string
	exportLimit     int
	exportDocsDir   string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to file",
	Long: `Export normalized chat sessions in json, md or yaml format.

By default sessions are restricted to the current working directory's
project; use --all-projects to export everything. The json format is the
input format of 'anyspecs compress'.

Use 'anyspecs list' to see available session IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := source.Filter{
			Project:     exportProject,
			SessionID:   exportSessionID,
			AllProjects: allProjects,
		}

		var sessions []*session.Session
		for _, name := range activeSources(exportSource, exportDocsDir) {
			adapter, err := newAdapter(name, exportDocsDir)
			if err != nil {
				internal.LogWarn("Skipping source %s: %v", name, err)
				continue
			}
			found, err := adapter.ExtractSessions(filter)
			if err != nil {
				internal.LogWarn("Failed to extract %s sessions: %v", name, err)
				continue
			}
			sessions = append(sessions, found...)
		}

		if exportSessionID != "" && len(sessions) == 0 {
			return fmt.Errorf("session not found: %s (use 'anyspecs list' to see available sessions)", exportSessionID)
		}

		if exportLimit > 0 && len(sessions) > exportLimit {
			sessions = sessions[:exportLimit]
		}

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(exportDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		index := export.NewIndexWriter(exportDir)

		exported := 0
		for _, sess := range sessions {
			if sess == nil || len(sess.Messages) == 0 {
				continue
			}

			name := export.FileName(sess, exporter.Extension())
			path := filepath.Join(exportDir, name)

			file, err := os.Create(path)
			if err != nil {
				internal.LogError("Failed to create file %s: %v", path, err)
				continue
			}
			if err := exporter.Export(sess, file); err != nil {
				_ = file.Close()
				internal.LogError("Failed to export session %s: %v", sess.ID, err)
				continue
			}
			if err := file.Close(); err != nil {
				internal.LogWarn("Failed to close file %s: %v", path, err)
			}

			if err := index.Record(sess, name); err != nil {
				internal.LogWarn("Failed to update session index: %v", err)
			}
			exported++
		}

		fmt.Printf("Export complete: %d session(s) exported to %s\n", exported, exportDir)
		return nil
	},
}

// newAdapter builds an adapter, routing docs to the flagged directory.
func newAdapter(name, docsDir string) (source.Adapter, error) {
	if name == source.DocsSourceName {
		return source.NewDocs(docsDir)
	}
	return source.New(name)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format (json, md, yaml)")
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVarP(&exportSource, "source", "s", "", "Only export from one source (cursor, claude, docs)")
	exportCmd.Flags().StringVar(&exportProject, "project", "", "Filter by project name (substring match)")
	exportCmd.Flags().StringVar(&exportSessionID, "session-id", "", "Export sessions whose ID starts with this prefix")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Export at most N sessions (0 = no limit)")
	exportCmd.Flags().StringVar(&exportDocsDir, "docs-dir", "", "Directory of loose documents to export as a session")
}
