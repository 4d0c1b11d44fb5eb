package export

import (
	"fmt"
	"io"

	"github.com/anyspecs/anyspecs/internal/session"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(sess *session.Session, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# Session %s\n\n", sess.ID)

	if sess.Project.Name != "" {
		_, _ = fmt.Fprintf(w, "**Project:** %s  \n", sess.Project.Name)
	}
	_, _ = fmt.Fprintf(w, "**Source:** %s  \n", sess.Source)
	if ts := formatTime(sess.CreatedAt); ts != "" {
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", ts)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(sess.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range sess.Messages {
		timestamp := ""
		if ts := formatTime(msg.Timestamp); ts != "" {
			timestamp = fmt.Sprintf(" (%s)", ts)
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", msg.Role, timestamp, msg.Content)

		for _, call := range msg.ToolCalls {
			_, _ = fmt.Fprintf(w, "> 🔧 **%s** [%s]", call.Name, call.Status)
			if call.Input != "" {
				_, _ = fmt.Fprintf(w, "\n> Input: `%s`", session.Truncate(call.Input, 120))
			}
			if call.Output != "" {
				_, _ = fmt.Fprintf(w, "\n> Output: `%s`", session.Truncate(call.Output, 120))
			}
			_, _ = fmt.Fprintf(w, "\n\n")
		}

		if i < len(sess.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
