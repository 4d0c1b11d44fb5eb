package session

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short unchanged", in: "hello", max: 10, want: "hello"},
		{name: "newlines collapsed", in: "a\nb\rc", max: 10, want: "a b c"},
		{name: "truncated with ellipsis", in: "abcdefgh", max: 5, want: "abcd…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	s := &Session{Messages: []Message{
		{Role: RoleAssistant, Content: "welcome"},
		{Role: RoleUser, Content: "make the tests pass"},
	}}
	if got := s.Title(); got != "make the tests pass" {
		t.Errorf("Title() = %q, want the first user message", got)
	}

	long := &Session{Messages: []Message{
		{Role: RoleUser, Content: strings.Repeat("y", 200)},
	}}
	if got := long.Title(); len([]rune(got)) != 80 {
		t.Errorf("Title() length = %d runes, want 80", len([]rune(got)))
	}

	empty := &Session{}
	if got := empty.Title(); got != "(untitled)" {
		t.Errorf("Title() = %q, want (untitled)", got)
	}
}

func TestHasToolCalls(t *testing.T) {
	without := &Session{Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	if without.HasToolCalls() {
		t.Error("HasToolCalls() = true for a session without tool calls")
	}

	with := &Session{Messages: []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{Name: "grep", Status: ToolPending}}},
	}}
	if !with.HasToolCalls() {
		t.Error("HasToolCalls() = false for a session with tool calls")
	}
}
