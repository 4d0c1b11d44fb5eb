package source

import (
	"strings"
	"testing"

	"github.com/anyspecs/anyspecs/testutil"
)

func TestDocsExtractSessions(t *testing.T) {
	root := t.TempDir()
	testutil.WriteDocsTree(t, root, map[string]string{
		"README.md":      "# Demo Project\n\nA sample project for testing.\n\nMore text.",
		"notes/plan.md":  "phase one",
		"notes/todo.txt": "ship it",
		"image.png":      "binary junk",
		".git/HEAD":      "ref: refs/heads/main",
	})

	adapter, err := NewDocs(root)
	if err != nil {
		t.Fatalf("NewDocs() error = %v", err)
	}

	sessions, err := adapter.ExtractSessions(Filter{})
	if err != nil {
		t.Fatalf("ExtractSessions() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("ExtractSessions() returned %d sessions, want 1", len(sessions))
	}

	s := sessions[0]
	if s.Source != DocsSourceName {
		t.Errorf("source = %q, want %q", s.Source, DocsSourceName)
	}
	// README summary prefix plus one message per eligible document.
	if len(s.Messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(s.Messages))
	}
	if !strings.HasPrefix(s.Messages[0].Content, "# Demo Project") {
		t.Errorf("first message should carry the README summary, got %q", s.Messages[0].Content)
	}
	if len(s.Documents) != 3 {
		t.Fatalf("got %d documents, want 3", len(s.Documents))
	}

	// Documents ordered by relative path.
	want := []string{"README.md", "notes/plan.md", "notes/todo.txt"}
	for i, doc := range s.Documents {
		if doc.Name != want[i] {
			t.Errorf("document[%d] = %q, want %q", i, doc.Name, want[i])
		}
	}
}

func TestDocsStableSessionID(t *testing.T) {
	root := t.TempDir()
	testutil.WriteDocsTree(t, root, map[string]string{"a.md": "content"})

	adapter, err := NewDocs(root)
	if err != nil {
		t.Fatalf("NewDocs() error = %v", err)
	}

	first, err := adapter.ExtractSessions(Filter{})
	if err != nil {
		t.Fatalf("ExtractSessions() error = %v", err)
	}
	second, err := adapter.ExtractSessions(Filter{})
	if err != nil {
		t.Fatalf("ExtractSessions() error = %v", err)
	}
	if first[0].ID != second[0].ID {
		t.Errorf("session ID not stable across extractions: %q vs %q", first[0].ID, second[0].ID)
	}
}

func TestDocsEmptyDirectory(t *testing.T) {
	adapter, err := NewDocs(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocs() error = %v", err)
	}

	sessions, err := adapter.ExtractSessions(Filter{})
	if err != nil {
		t.Fatalf("ExtractSessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("got %d sessions from empty directory, want 0", len(sessions))
	}

	descriptors, err := adapter.ListSessions(Filter{})
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(descriptors) != 0 {
		t.Errorf("got %d descriptors from empty directory, want 0", len(descriptors))
	}
}

func TestDocsListSessions(t *testing.T) {
	root := t.TempDir()
	testutil.WriteDocsTree(t, root, map[string]string{
		"a.md": "one",
		"b.md": "two",
	})

	adapter, err := NewDocs(root)
	if err != nil {
		t.Fatalf("NewDocs() error = %v", err)
	}

	descriptors, err := adapter.ListSessions(Filter{})
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("got %d descriptors, want 1", len(descriptors))
	}
	if descriptors[0].MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", descriptors[0].MessageCount)
	}
}
