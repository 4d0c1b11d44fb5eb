package source

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/anyspecs/anyspecs/internal"
	"github.com/anyspecs/anyspecs/internal/session"
)

const CursorSourceName = "cursor"

func init() {
	Register(CursorSourceName, func() (Adapter, error) { return NewCursor() })
}

// CursorAdapter extracts sessions from Cursor's globalStorage state
// database. Conversation records are stored as composer blobs whose message
// order comes from conversation headers referencing bubble rows.
type CursorAdapter struct {
	db         *sql.DB
	workspaces []workspaceInfo
	contexts   map[string][]string // composerId -> project layout paths
	cwd        string
}

type workspaceInfo struct {
	Hash string
	Path string
}

// NewCursor opens the Cursor storage for the current platform.
func NewCursor() (*CursorAdapter, error) {
	base, err := cursorBasePath()
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(base, "globalStorage", "state.vscdb")
	if _, err := os.Stat(dbPath); err != nil {
		return nil, &ReadError{Source: CursorSourceName, Unit: dbPath, Err: err}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, &ReadError{Source: CursorSourceName, Unit: dbPath, Err: err}
	}

	cwd, _ := os.Getwd()
	a := &CursorAdapter{
		db:         db,
		workspaces: detectWorkspaces(filepath.Join(base, "workspaceStorage")),
		cwd:        cwd,
	}
	a.loadContexts()
	return a, nil
}

// newCursorWith wires an adapter around an already open database. Used by
// tests.
func newCursorWith(db *sql.DB, workspaces []workspaceInfo, cwd string) *CursorAdapter {
	a := &CursorAdapter{db: db, workspaces: workspaces, cwd: cwd}
	a.loadContexts()
	return a
}

func cursorBasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library/Application Support/Cursor/User"), nil
	case "linux":
		return filepath.Join(home, ".config/Cursor/User"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s (only macOS and Linux are supported)", runtime.GOOS)
	}
}

// detectWorkspaces reads workspaceStorage/<hash>/workspace.json entries to
// map workspace hashes to folder paths.
func detectWorkspaces(workspaceStorage string) []workspaceInfo {
	entries, err := os.ReadDir(workspaceStorage)
	if err != nil {
		return nil
	}

	var workspaces []workspaceInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(workspaceStorage, entry.Name(), "workspace.json"))
		if err != nil {
			continue
		}

		var ws struct {
			Folder string `json:"folder"`
		}
		if err := json.Unmarshal(data, &ws); err != nil || ws.Folder == "" {
			continue
		}

		workspaces = append(workspaces, workspaceInfo{
			Hash: entry.Name(),
			Path: strings.TrimPrefix(ws.Folder, "file://"),
		})
	}
	return workspaces
}

// loadContexts loads messageRequestContext rows to associate composers with
// project layout paths. Missing or malformed rows are skipped.
func (a *CursorAdapter) loadContexts() {
	a.contexts = make(map[string][]string)

	pairs, err := queryDiskKV(a.db, "messageRequestContext:%")
	if err != nil {
		internal.LogDebug("cursor: failed to query message contexts: %v", err)
		return
	}

	for _, pair := range pairs {
		parts := strings.SplitN(pair.Key, ":", 3)
		if len(parts) < 3 {
			continue
		}
		var ctx struct {
			ProjectLayouts []string `json:"projectLayouts"`
		}
		if err := json.Unmarshal([]byte(pair.Value), &ctx); err != nil {
			continue
		}
		if len(ctx.ProjectLayouts) > 0 {
			a.contexts[parts[1]] = append(a.contexts[parts[1]], ctx.ProjectLayouts...)
		}
	}
}

func (a *CursorAdapter) Name() string { return CursorSourceName }

// ListSessions enumerates composer records without loading bubbles.
func (a *CursorAdapter) ListSessions(filter Filter) ([]session.Descriptor, error) {
	composers, err := a.loadComposers()
	if err != nil {
		return nil, err
	}

	var descriptors []session.Descriptor
	for _, composer := range composers {
		project := a.projectFor(composer.ComposerID)
		if !a.matches(filter, composer.ComposerID, project) {
			continue
		}

		count := len(composer.FullConversationHeadersOnly)
		if count == 0 {
			count = len(composer.Conversation)
		}

		title := composer.Name
		if title == "" {
			title = "(untitled)"
		}

		descriptors = append(descriptors, session.Descriptor{
			ID:           composer.ComposerID,
			Source:       CursorSourceName,
			Title:        title,
			Project:      project.Name,
			MessageCount: count,
			CreatedAt:    millisToTime(composer.CreatedAt),
			ModifiedAt:   millisToTime(composer.LastUpdatedAt),
		})
	}
	return descriptors, nil
}

// ExtractSessions reconstructs full sessions. A composer with a missing or
// malformed blob is skipped; the scan never aborts on one bad record.
func (a *CursorAdapter) ExtractSessions(filter Filter) ([]*session.Session, error) {
	composers, err := a.loadComposers()
	if err != nil {
		return nil, err
	}
	bubbles, err := a.loadBubbles()
	if err != nil {
		return nil, err
	}

	var sessions []*session.Session
	for _, composer := range composers {
		project := a.projectFor(composer.ComposerID)
		if !a.matches(filter, composer.ComposerID, project) {
			continue
		}

		messages := reconstructMessages(composer, bubbles)
		if len(messages) == 0 {
			continue
		}

		sessions = append(sessions, &session.Session{
			ID:         composer.ComposerID,
			Source:     CursorSourceName,
			Project:    project,
			Messages:   messages,
			CreatedAt:  millisToTime(composer.CreatedAt),
			ModifiedAt: millisToTime(composer.LastUpdatedAt),
		})
	}
	return sessions, nil
}

// reconstructMessages rebuilds message order from conversation headers,
// falling back to the inline conversation blob on older records.
func reconstructMessages(composer *rawComposer, bubbles map[string]*rawBubble) []session.Message {
	var messages []session.Message

	if len(composer.FullConversationHeadersOnly) > 0 {
		for _, header := range composer.FullConversationHeadersOnly {
			bubble, ok := bubbles[header.BubbleID]
			if !ok {
				internal.LogDebug("cursor: bubble %s missing for composer %s", header.BubbleID, composer.ComposerID)
				continue
			}

			text := bubbleText(bubble)
			calls := bubbleToolCalls(bubble)
			if text == "" && len(calls) == 0 {
				continue
			}

			messages = append(messages, session.Message{
				Role:      bubbleRole(header.Type),
				Content:   text,
				Timestamp: millisToTime(bubble.Timestamp),
				ToolCalls: calls,
			})
		}
		return messages
	}

	for _, msg := range composer.Conversation {
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}
		messages = append(messages, session.Message{
			Role:    bubbleRole(msg.Type),
			Content: msg.Text,
		})
	}
	return messages
}

func bubbleRole(bubbleType int) session.Role {
	if bubbleType == 2 {
		return session.RoleAssistant
	}
	return session.RoleUser
}

func bubbleToolCalls(bubble *rawBubble) []session.ToolCall {
	var calls []session.ToolCall
	for _, rec := range bubble.ToolCalls {
		if rec.Name == "" {
			continue
		}

		call := session.ToolCall{
			Name:   rec.Name,
			Input:  string(rec.Params),
			Output: string(rec.Result),
		}
		switch {
		case rec.Status == "error":
			call.Status = session.ToolFailed
		case len(rec.Result) > 0:
			call.Status = session.ToolCompleted
		default:
			call.Status = session.ToolPending
		}
		calls = append(calls, call)
	}
	return calls
}

func (a *CursorAdapter) loadComposers() ([]*rawComposer, error) {
	pairs, err := queryDiskKV(a.db, "composerData:%")
	if err != nil {
		return nil, &ReadError{Source: CursorSourceName, Unit: "composerData", Err: err}
	}

	var composers []*rawComposer
	for _, pair := range pairs {
		composer, err := parseRawComposer(pair.Key, pair.Value)
		if err != nil {
			internal.LogDebug("cursor: skipping composer %s: %v", pair.Key, err)
			continue
		}
		composers = append(composers, composer)
	}
	return composers, nil
}

func (a *CursorAdapter) loadBubbles() (map[string]*rawBubble, error) {
	pairs, err := queryDiskKV(a.db, "bubbleId:%")
	if err != nil {
		return nil, &ReadError{Source: CursorSourceName, Unit: "bubbleId", Err: err}
	}

	bubbles := make(map[string]*rawBubble)
	for _, pair := range pairs {
		bubble, err := parseRawBubble(pair.Key, pair.Value)
		if err != nil {
			internal.LogDebug("cursor: skipping bubble %s: %v", pair.Key, err)
			continue
		}
		bubbles[bubble.BubbleID] = bubble
	}
	return bubbles, nil
}

// projectFor resolves a composer's workspace by matching its project layout
// paths against detected workspace folders.
func (a *CursorAdapter) projectFor(composerID string) session.Project {
	for _, layout := range a.contexts[composerID] {
		for _, ws := range a.workspaces {
			if ws.Path != "" && layout == ws.Path {
				return session.Project{Name: filepath.Base(ws.Path), RootPath: ws.Path}
			}
		}
	}
	return session.Project{}
}

// matches applies the filter. With no explicit project and no AllProjects
// override, only sessions whose workspace contains the current working
// directory are returned.
func (a *CursorAdapter) matches(filter Filter, id string, project session.Project) bool {
	if filter.SessionID != "" {
		return strings.HasPrefix(id, filter.SessionID)
	}

	if filter.Project != "" {
		return strings.Contains(strings.ToLower(project.Name), strings.ToLower(filter.Project))
	}

	if filter.AllProjects {
		return true
	}

	if a.cwd == "" || project.RootPath == "" {
		// No workspace association to compare; keep the session rather
		// than silently hiding it.
		return true
	}
	return strings.HasPrefix(a.cwd, project.RootPath)
}
