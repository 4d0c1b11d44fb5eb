// Package session defines the canonical representation of a chat session
// after extraction, independent of which tool produced it.
package session

import "time"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolStatus tracks the lifecycle of a tool call.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolCompleted ToolStatus = "completed"
	ToolFailed    ToolStatus = "failed"
)

// Session represents a normalized chat session. Adapters construct a Session
// once and never modify it afterwards.
type Session struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"` // adapter name: "cursor", "claude", "docs"
	Project    Project    `json:"project,omitempty"`
	Workspace  string     `json:"workspace,omitempty"`
	Messages   []Message  `json:"messages"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
	ModifiedAt time.Time  `json:"modified_at,omitempty"`
	Documents  []Document `json:"documents,omitempty"` // set by the docs adapter only
}

// Project describes the workspace/project a session belongs to.
type Project struct {
	Name     string `json:"name,omitempty"`
	RootPath string `json:"root_path,omitempty"`
}

// Message represents one turn in a conversation. Tool results are attached
// to the same Message as their invocation.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall records a tool invocation and, once available, its result.
type ToolCall struct {
	ID     string     `json:"id,omitempty"`
	Name   string     `json:"name"`
	Input  string     `json:"input,omitempty"`
	Output string     `json:"output,omitempty"`
	Status ToolStatus `json:"status"`
}

// Document records per-file metadata for sessions synthesized from a
// directory of loose documents.
type Document struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Descriptor is a lightweight view of a session used for listing without
// loading full message content.
type Descriptor struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Title        string    `json:"title,omitempty"`
	Project      string    `json:"project,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	ModifiedAt   time.Time `json:"modified_at,omitempty"`
}

// HasToolCalls reports whether any message in the session carries tool calls.
func (s *Session) HasToolCalls() bool {
	for _, m := range s.Messages {
		if len(m.ToolCalls) > 0 {
			return true
		}
	}
	return false
}

// Title derives a display title from the first user message.
func (s *Session) Title() string {
	for _, m := range s.Messages {
		if m.Role == RoleUser && m.Content != "" {
			return Truncate(m.Content, 80)
		}
	}
	return "(untitled)"
}

// Truncate shortens s to at most max runes, collapsing newlines to spaces.
func Truncate(s string, max int) string {
	out := make([]rune, 0, max)
	for _, r := range s {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		out = append(out, r)
		if len(out) == max {
			return string(out[:max-1]) + "…"
		}
	}
	return string(out)
}
