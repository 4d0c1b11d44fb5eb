// Package specs defines the canonical compressed-artifact schema and
// enforces it before anything reaches disk.
package specs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anyspecs/anyspecs/internal/session"
)

// Artifact is the canonical compressed output of one compression run over
// one session. Written once, never mutated.
type Artifact struct {
	// Required fields.
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	SessionID   string    `json:"session_id"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`

	// Optional fields, present only when the source session contained the
	// corresponding content.
	ToolDigest  []string `json:"tool_digest,omitempty"`
	FileChanges []string `json:"file_changes,omitempty"`
	Decisions   []string `json:"decisions,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// ValidationError reports every required field the artifact violates.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("artifact validation failed: missing or invalid fields: %s",
		strings.Join(e.Violations, ", "))
}

// Validate checks that all required fields are present and well-formed.
// All violations are collected before returning.
func Validate(a *Artifact) error {
	var violations []string
	if strings.TrimSpace(a.Title) == "" {
		violations = append(violations, "title")
	}
	if strings.TrimSpace(a.Summary) == "" {
		violations = append(violations, "summary")
	}
	if a.SessionID == "" {
		violations = append(violations, "session_id")
	}
	if a.Source == "" {
		violations = append(violations, "source")
	}
	if a.GeneratedAt.IsZero() {
		violations = append(violations, "generated_at")
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Format reconciles the artifact's optional sections with what the source
// session actually contains: a tool digest for a session without tool
// calls is stripped rather than rejected.
func Format(a *Artifact, sess *session.Session) {
	if !sess.HasToolCalls() {
		a.ToolDigest = nil
	}
}

// Parse decodes a model completion into an artifact and stamps the fields
// the model does not own. Completions wrapped in markdown fences are
// unwrapped first.
func Parse(completion string, sess *session.Session, providerName, model string) (*Artifact, error) {
	text := stripFences(completion)

	var a Artifact
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return nil, fmt.Errorf("completion is not valid artifact JSON: %w", err)
	}

	a.SessionID = sess.ID
	a.Source = sess.Source
	a.GeneratedAt = time.Now().UTC().Truncate(time.Second)
	a.Provider = providerName
	a.Model = model
	Format(&a, sess)
	return &a, nil
}

// Path returns the durable location of a session's artifact. The file name
// doubles as the orchestrator's idempotency key.
func Path(outputDir, sessionID string) string {
	return filepath.Join(outputDir, sessionID+".specs.json")
}

// Write validates and persists the artifact. Invalid artifacts are never
// written.
func Write(path string, a *Artifact) error {
	if err := Validate(a); err != nil {
		return err
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return nil
}

// Read loads a previously written artifact.
func Read(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return &a, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
