package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anyspecs/anyspecs/internal"
	"github.com/anyspecs/anyspecs/internal/session"
)

const DocsSourceName = "docs"

// Only plain documents are merged; binaries and build output are not.
var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".rst":      true,
}

func init() {
	Register(DocsSourceName, func() (Adapter, error) { return NewDocs(".") })
}

// DocsAdapter synthesizes one session per directory from loose documents.
// Order within the session is deterministic: path, then modification time.
type DocsAdapter struct {
	root string
}

// NewDocs creates an adapter rooted at dir.
func NewDocs(dir string) (*DocsAdapter, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &ReadError{Source: DocsSourceName, Unit: dir, Err: err}
	}
	return &DocsAdapter{root: abs}, nil
}

func (a *DocsAdapter) Name() string { return DocsSourceName }

type docFile struct {
	path string
	rel  string
	mod  time.Time
}

// ListSessions stats eligible documents without reading their content.
func (a *DocsAdapter) ListSessions(filter Filter) ([]session.Descriptor, error) {
	files, err := a.collect()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	desc := session.Descriptor{
		ID:           docsSessionID(a.root),
		Source:       DocsSourceName,
		Title:        filepath.Base(a.root),
		Project:      filepath.Base(a.root),
		MessageCount: len(files),
	}
	for _, f := range files {
		if desc.CreatedAt.IsZero() || f.mod.Before(desc.CreatedAt) {
			desc.CreatedAt = f.mod
		}
		if f.mod.After(desc.ModifiedAt) {
			desc.ModifiedAt = f.mod
		}
	}

	if !descriptorMatches(filter, desc) {
		return nil, nil
	}
	return []session.Descriptor{desc}, nil
}

// ExtractSessions merges the directory's documents into a single
// synthesized session. An unreadable file is logged and skipped.
func (a *DocsAdapter) ExtractSessions(filter Filter) ([]*session.Session, error) {
	files, err := a.collect()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	s := &session.Session{
		ID:     docsSessionID(a.root),
		Source: DocsSourceName,
		Project: session.Project{
			Name:     filepath.Base(a.root),
			RootPath: a.root,
		},
	}

	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			internal.LogWarn("docs: skipping unreadable file %s: %v", f.path, err)
			continue
		}

		s.Documents = append(s.Documents, session.Document{Name: f.rel, ModifiedAt: f.mod})
		s.Messages = append(s.Messages, session.Message{
			Role:      session.RoleUser,
			Content:   fmt.Sprintf("## %s\n\n%s", f.rel, strings.TrimSpace(string(data))),
			Timestamp: f.mod,
		})

		if s.CreatedAt.IsZero() || f.mod.Before(s.CreatedAt) {
			s.CreatedAt = f.mod
		}
		if f.mod.After(s.ModifiedAt) {
			s.ModifiedAt = f.mod
		}
	}

	if len(s.Messages) == 0 {
		return nil, nil
	}

	if summary := a.projectSummary(); summary != "" {
		s.Messages = append([]session.Message{{
			Role:    session.RoleUser,
			Content: summary,
		}}, s.Messages...)
	}

	if filter.SessionID != "" && !strings.HasPrefix(s.ID, filter.SessionID) {
		return nil, nil
	}
	if filter.Project != "" &&
		!strings.Contains(strings.ToLower(s.Project.Name), strings.ToLower(filter.Project)) {
		return nil, nil
	}
	return []*session.Session{s}, nil
}

// collect walks the tree gathering eligible documents, ordered by path then
// modification time.
func (a *DocsAdapter) collect() ([]docFile, error) {
	var files []docFile
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			internal.LogDebug("docs: skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !docExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			internal.LogDebug("docs: skipping %s: %v", path, err)
			return nil
		}

		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			rel = path
		}
		files = append(files, docFile{path: path, rel: rel, mod: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, &ReadError{Source: DocsSourceName, Unit: a.root, Err: err}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].rel != files[j].rel {
			return files[i].rel < files[j].rel
		}
		return files[i].mod.Before(files[j].mod)
	})
	return files, nil
}

// projectSummary looks for a human-readable project description: the first
// heading and paragraph of a README at the directory root.
func (a *DocsAdapter) projectSummary() string {
	for _, name := range []string{"README.md", "README.txt", "readme.md"} {
		data, err := os.ReadFile(filepath.Join(a.root, name))
		if err != nil {
			continue
		}

		var lines []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				if len(lines) > 1 {
					break
				}
				continue
			}
			lines = append(lines, line)
			if len(lines) >= 4 {
				break
			}
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}
	return ""
}

// docsSessionID derives a stable identifier from the directory path so
// re-extraction of the same tree yields the same session.
func docsSessionID(root string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("anyspecs:docs:"+root)).String()
}

func descriptorMatches(filter Filter, desc session.Descriptor) bool {
	if filter.SessionID != "" && !strings.HasPrefix(desc.ID, filter.SessionID) {
		return false
	}
	if filter.Project != "" &&
		!strings.Contains(strings.ToLower(desc.Project), strings.ToLower(filter.Project)) {
		return false
	}
	return true
}
