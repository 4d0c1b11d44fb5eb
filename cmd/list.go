package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/anyspecs/anyspecs/internal"
	"github.com/anyspecs/anyspecs/internal/session"
	"github.com/anyspecs/anyspecs/internal/source"
)

var (
	listSource  string
	listProject string
	listDocsDir string
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available sessions",
	Long: `List chat sessions from all configured sources.

By default only sessions belonging to the current working directory's
project are shown. Use --all-projects to list everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := source.Filter{
			Project:     listProject,
			AllProjects: allProjects,
		}

		var descriptors []session.Descriptor
		for _, name := range activeSources(listSource, listDocsDir) {
			adapter, err := newAdapter(name, listDocsDir)
			if err != nil {
				internal.LogWarn("Skipping source %s: %v", name, err)
				continue
			}
			found, err := adapter.ListSessions(filter)
			if err != nil {
				internal.LogWarn("Failed to list %s sessions: %v", name, err)
				continue
			}
			descriptors = append(descriptors, found...)
		}

		displaySessions(descriptors)
		return nil
	},
}

// sourceNames resolves the --source flag to the adapters to query.
func sourceNames(flag string) []string {
	if flag != "" {
		return []string{flag}
	}
	return source.Names()
}

// activeSources applies the docs gate on top of sourceNames: the docs
// adapter only runs when a document directory is named, so a plain
// invocation never walks the working tree.
func activeSources(flag, docsDir string) []string {
	names := sourceNames(flag)
	if docsDir != "" {
		return names
	}
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if name == source.DocsSourceName {
			continue
		}
		filtered = append(filtered, name)
	}
	return filtered
}

func displaySessions(descriptors []session.Descriptor) {
	if len(descriptors) == 0 {
		fmt.Println(headerStyle.Render("📋 No sessions found"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(descriptors)))
	fmt.Println(header)
	fmt.Println()

	// Use tabwriter for aligned columns with better spacing
	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Source")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Modified")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 110))

	for _, d := range descriptors {
		title := d.Title
		if title == "" {
			title = "Untitled"
		}
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		title = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(title)

		msgCount := countStyle.Render(strconv.Itoa(d.MessageCount))

		modified := relativeTime(d.ModifiedAt)
		if modified == "" {
			modified = relativeTime(d.CreatedAt)
		}
		if modified == "" {
			modified = "—"
		}

		shortID := d.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(shortID),
			sourceStyle.Render(d.Source),
			title,
			msgCount,
			dateStyle.Render(modified))
	}

	_ = w.Flush()
	fmt.Println()
	fmt.Println(idStyle.Render("💡 Tip: pass an ID prefix to `anyspecs export --session-id <id>`"))
}

// relativeTime formats a timestamp compactly, favoring recency.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listSource, "source", "s", "", "Only list sessions from one source (cursor, claude, docs)")
	listCmd.Flags().StringVar(&listProject, "project", "", "Filter by project name (substring match)")
	listCmd.Flags().StringVar(&listDocsDir, "docs-dir", "", "Directory of loose documents to list as a session")
}
