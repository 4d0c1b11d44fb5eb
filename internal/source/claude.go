package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/anyspecs/anyspecs/internal"
	"github.com/anyspecs/anyspecs/internal/session"
)

const ClaudeSourceName = "claude"

// Large tool outputs can produce very long lines.
const claudeMaxLineBytes = 10 * 1024 * 1024

func init() {
	Register(ClaudeSourceName, func() (Adapter, error) { return NewClaude() })
}

// ClaudeAdapter extracts sessions from Claude Code's append-only JSONL
// history under ~/.claude/projects. Each line carries a type discriminator
// and a session identifier; session boundaries are derived from the latter.
type ClaudeAdapter struct {
	root string // projects directory
	cwd  string
}

// NewClaude locates the Claude Code history for the current user.
func NewClaude() (*ClaudeAdapter, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, &ReadError{Source: ClaudeSourceName, Unit: "home", Err: err}
	}
	cwd, _ := os.Getwd()
	return &ClaudeAdapter{
		root: filepath.Join(home, ".claude", "projects"),
		cwd:  cwd,
	}, nil
}

func newClaudeWith(root, cwd string) *ClaudeAdapter {
	return &ClaudeAdapter{root: root, cwd: cwd}
}

func (a *ClaudeAdapter) Name() string { return ClaudeSourceName }

// logRecord is one line of the event log. Tool events carry a call
// identifier correlating an invocation with its eventual result.
type logRecord struct {
	Type       string          `json:"type"` // user | assistant | tool_use | tool_result
	SessionID  string          `json:"session_id"`
	SessionAlt string          `json:"sessionId"` // older logs use camelCase
	Timestamp  string          `json:"timestamp"`
	CWD        string          `json:"cwd,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
	CallID     string          `json:"call_id,omitempty"`
	Tool       string          `json:"tool,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

func (r *logRecord) sessionID() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	return r.SessionAlt
}

func (r *logRecord) time() time.Time {
	t, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ListSessions scans the event logs and reduces each session to a
// descriptor. Counting messages requires reading whole files, so this
// shares the extraction path and discards content afterwards.
func (a *ClaudeAdapter) ListSessions(filter Filter) ([]session.Descriptor, error) {
	sessions, err := a.ExtractSessions(filter)
	if err != nil {
		return nil, err
	}

	descriptors := make([]session.Descriptor, 0, len(sessions))
	for _, s := range sessions {
		descriptors = append(descriptors, session.Descriptor{
			ID:           s.ID,
			Source:       ClaudeSourceName,
			Title:        s.Title(),
			Project:      s.Project.Name,
			MessageCount: len(s.Messages),
			CreatedAt:    s.CreatedAt,
			ModifiedAt:   s.ModifiedAt,
		})
	}
	return descriptors, nil
}

// ExtractSessions reads every eligible log file and groups records by
// session identifier. Malformed lines are skipped, never fatal.
func (a *ClaudeAdapter) ExtractSessions(filter Filter) ([]*session.Session, error) {
	dirs, err := a.projectDirs(filter)
	if err != nil {
		return nil, err
	}

	builders := make(map[string]*sessionBuilder)
	var order []string

	for _, dir := range dirs {
		files, err := logFiles(dir)
		if err != nil {
			internal.LogWarn("claude: skipping unreadable project dir %s: %v", dir, err)
			continue
		}
		for _, file := range files {
			if err := a.consumeFile(file, builders, &order); err != nil {
				internal.LogWarn("claude: skipping unreadable log %s: %v", file, err)
			}
		}
	}

	var sessions []*session.Session
	for _, id := range order {
		b := builders[id]
		s := b.finish()
		if len(s.Messages) == 0 {
			continue
		}
		if filter.SessionID != "" && !strings.HasPrefix(s.ID, filter.SessionID) {
			continue
		}
		if filter.Project != "" &&
			!strings.Contains(strings.ToLower(s.Project.Name), strings.ToLower(filter.Project)) {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// projectDirs selects which project directories to scan. The current
// working directory maps to one directory via Claude's path encoding
// (slashes replaced with dashes) unless AllProjects is set.
func (a *ClaudeAdapter) projectDirs(filter Filter) ([]string, error) {
	if _, err := os.Stat(a.root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &ReadError{Source: ClaudeSourceName, Unit: a.root, Err: err}
	}

	if !filter.AllProjects && filter.Project == "" && filter.SessionID == "" && a.cwd != "" {
		encoded := strings.ReplaceAll(a.cwd, "/", "-")
		dir := filepath.Join(a.root, encoded)
		if _, err := os.Stat(dir); err == nil {
			return []string{dir}, nil
		}
		return nil, nil
	}

	entries, err := os.ReadDir(a.root)
	if err != nil {
		return nil, &ReadError{Source: ClaudeSourceName, Unit: a.root, Err: err}
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(a.root, entry.Name()))
		}
	}
	return dirs, nil
}

// logFiles returns the .jsonl files in dir ordered by modification time so
// that multi-file sessions accumulate in causal order.
func logFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type fileInfo struct {
		path string
		mod  time.Time
	}
	var files []fileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: filepath.Join(dir, entry.Name()), mod: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].path < files[j].path
		}
		return files[i].mod.Before(files[j].mod)
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

func (a *ClaudeAdapter) consumeFile(path string, builders map[string]*sessionBuilder, order *[]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 256*1024), claudeMaxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var rec logRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			schemaErr := &SchemaError{Source: ClaudeSourceName, Unit: fmt.Sprintf("%s:%d", path, lineNo), Err: err}
			internal.LogDebug("claude: skipping malformed line: %v", schemaErr)
			continue
		}

		id := rec.sessionID()
		if id == "" {
			continue
		}

		b, ok := builders[id]
		if !ok {
			b = newSessionBuilder(id)
			builders[id] = b
			*order = append(*order, id)
		}
		b.consume(&rec)
	}

	return sc.Err()
}

// sessionBuilder accumulates event-log records for one session and pairs
// tool invocations with their results by call identifier.
type sessionBuilder struct {
	id       string
	cwd      string
	messages []session.Message
	pending  map[string]toolRef // call id -> location of the invoked ToolCall
	first    time.Time
	last     time.Time
}

type toolRef struct {
	msg  int
	call int
}

func newSessionBuilder(id string) *sessionBuilder {
	return &sessionBuilder{id: id, pending: make(map[string]toolRef)}
}

func (b *sessionBuilder) consume(rec *logRecord) {
	if ts := rec.time(); !ts.IsZero() {
		if b.first.IsZero() || ts.Before(b.first) {
			b.first = ts
		}
		if ts.After(b.last) {
			b.last = ts
		}
	}
	if b.cwd == "" && rec.CWD != "" {
		b.cwd = rec.CWD
	}

	switch rec.Type {
	case "user":
		if text := messageText(rec.Message); text != "" {
			b.messages = append(b.messages, session.Message{
				Role:      session.RoleUser,
				Content:   text,
				Timestamp: rec.time(),
			})
		}
	case "assistant":
		if text := messageText(rec.Message); text != "" {
			b.messages = append(b.messages, session.Message{
				Role:      session.RoleAssistant,
				Content:   text,
				Timestamp: rec.time(),
			})
		}
	case "tool_use":
		b.addToolUse(rec)
	case "tool_result":
		b.resolveToolResult(rec)
	default:
		// Unknown record types (summaries, snapshots) are ignored.
	}
}

// addToolUse attaches a pending ToolCall to the latest assistant message,
// synthesizing a tool message when the invocation arrives first.
func (b *sessionBuilder) addToolUse(rec *logRecord) {
	call := session.ToolCall{
		ID:     rec.CallID,
		Name:   rec.Tool,
		Input:  compactJSON(rec.Input),
		Status: session.ToolPending,
	}

	idx := len(b.messages) - 1
	if idx < 0 || b.messages[idx].Role != session.RoleAssistant {
		b.messages = append(b.messages, session.Message{
			Role:      session.RoleTool,
			Timestamp: rec.time(),
		})
		idx = len(b.messages) - 1
	}

	b.messages[idx].ToolCalls = append(b.messages[idx].ToolCalls, call)
	if rec.CallID != "" {
		b.pending[rec.CallID] = toolRef{msg: idx, call: len(b.messages[idx].ToolCalls) - 1}
	}
}

// resolveToolResult merges a result into the ToolCall it belongs to. The
// invocation and its result always end up on the same message. A result
// with no matching invocation is logged and dropped.
func (b *sessionBuilder) resolveToolResult(rec *logRecord) {
	ref, ok := b.pending[rec.CallID]
	if !ok {
		internal.LogDebug("claude: session %s: tool_result with unknown call id %q", b.id, rec.CallID)
		return
	}
	delete(b.pending, rec.CallID)

	call := &b.messages[ref.msg].ToolCalls[ref.call]
	call.Output = compactJSON(rec.Result)
	if resultIsError(rec.Result) {
		call.Status = session.ToolFailed
	} else {
		call.Status = session.ToolCompleted
	}
}

// finish seals the builder into an immutable session. Invocations that
// never saw a result remain in pending status rather than being dropped.
func (b *sessionBuilder) finish() *session.Session {
	project := session.Project{}
	if b.cwd != "" {
		project = session.Project{Name: filepath.Base(b.cwd), RootPath: b.cwd}
	}

	return &session.Session{
		ID:         b.id,
		Source:     ClaudeSourceName,
		Project:    project,
		Messages:   b.messages,
		CreatedAt:  b.first,
		ModifiedAt: b.last,
	}
}

// messageText extracts text from a message payload whose content is either
// a plain string or an array of typed content blocks.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var msg struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil || len(msg.Content) == 0 {
		return ""
	}

	var str string
	if err := json.Unmarshal(msg.Content, &str); err == nil {
		return strings.TrimSpace(str)
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return ""
	}

	var texts []string
	for _, block := range blocks {
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

func resultIsError(raw json.RawMessage) bool {
	var res struct {
		IsError bool `json:"is_error"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return false
	}
	return res.IsError
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return string(raw)
}
