package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anyspecs/anyspecs/internal/session"
)

// WriteEventLog writes a JSONL event log file under dir, one record per line
func WriteEventLog(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create log directory: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write event log %s: %v", path, err)
	}
	return path
}

// WriteDocsTree materializes a document tree: keys are relative paths,
// values are file contents
func WriteDocsTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

// NewSession builds a minimal valid session for pipeline tests
func NewSession(id string, messages ...session.Message) *session.Session {
	if len(messages) == 0 {
		messages = []session.Message{
			{Role: session.RoleUser, Content: "fix the login bug", Timestamp: time.Unix(1000, 0).UTC()},
			{Role: session.RoleAssistant, Content: "The null check was missing.", Timestamp: time.Unix(1001, 0).UTC()},
		}
	}
	return &session.Session{
		ID:         id,
		Source:     "cursor",
		Project:    session.Project{Name: "demo", RootPath: "/work/demo"},
		Messages:   messages,
		CreatedAt:  time.Unix(1000, 0).UTC(),
		ModifiedAt: time.Unix(1001, 0).UTC(),
	}
}

// WriteSessionFile writes a normalized session as json into dir, the way
// the export command does
func WriteSessionFile(t *testing.T, dir string, sess *session.Session) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create input directory: %v", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal session: %v", err)
	}
	path := filepath.Join(dir, sess.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write session file: %v", err)
	}
	return path
}

// JSONUnmarshal unmarshals JSON for testing
func JSONUnmarshal(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
}
