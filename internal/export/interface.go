// Package export renders normalized sessions to disk. The json format is
// also the compression pipeline's input format.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anyspecs/anyspecs/internal/session"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(sess *session.Session, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, md, yaml)", format)
	}
}

// FileName builds the deterministic output name for a session:
// <source>-<project>-<shortid>-<timestamp>.<ext>.
func FileName(sess *session.Session, ext string) string {
	project := strings.ReplaceAll(sess.Project.Name, " ", "_")
	if project == "" {
		project = "unknown"
	}

	shortID := sess.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	ts := sess.CreatedAt
	if ts.IsZero() {
		ts = sess.ModifiedAt
	}
	stamp := "00000000-000000"
	if !ts.IsZero() {
		stamp = ts.Format("20060102-150405")
	}

	return fmt.Sprintf("%s-%s-%s-%s.%s", sess.Source, project, shortID, stamp, ext)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
