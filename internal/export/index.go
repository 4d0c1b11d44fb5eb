package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anyspecs/anyspecs/internal/session"
)

// indexFileName is the name of the YAML index written alongside exports.
const indexFileName = "sessions.yaml"

// IndexEntry records one exported session in the directory index.
type IndexEntry struct {
	ID           string `yaml:"id"`
	Source       string `yaml:"source"`
	Title        string `yaml:"title,omitempty"`
	Project      string `yaml:"project,omitempty"`
	File         string `yaml:"file"`
	MessageCount int    `yaml:"message_count"`
	CreatedAt    string `yaml:"created_at,omitempty"`
	ModifiedAt   string `yaml:"modified_at,omitempty"`
}

// IndexMetadata stores bookkeeping for the index file itself.
type IndexMetadata struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Index is the YAML index of all sessions exported into a directory.
type Index struct {
	Sessions []IndexEntry  `yaml:"sessions"`
	Metadata IndexMetadata `yaml:"metadata"`
}

// IndexWriter maintains the session index for an export directory.
type IndexWriter struct {
	dir string
}

// NewIndexWriter creates an index writer for the given export directory.
func NewIndexWriter(dir string) *IndexWriter {
	return &IndexWriter{dir: dir}
}

// Path returns the path to the index file.
func (iw *IndexWriter) Path() string {
	return filepath.Join(iw.dir, indexFileName)
}

// Load loads the existing index, or returns a fresh one if none exists.
func (iw *IndexWriter) Load() (*Index, error) {
	data, err := os.ReadFile(iw.Path())
	if os.IsNotExist(err) {
		now := time.Now()
		return &Index{
			Sessions: make([]IndexEntry, 0),
			Metadata: IndexMetadata{Version: "1.0", CreatedAt: now, UpdatedAt: now},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	var index Index
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}
	return &index, nil
}

// Record adds or updates the entry for an exported session and saves the
// index. Entries are keyed by session ID, so re-exporting a session replaces
// its previous entry.
func (iw *IndexWriter) Record(sess *session.Session, fileName string) error {
	index, err := iw.Load()
	if err != nil {
		return err
	}

	entry := IndexEntry{
		ID:           sess.ID,
		Source:       sess.Source,
		Title:        sess.Title(),
		Project:      sess.Project.Name,
		File:         fileName,
		MessageCount: len(sess.Messages),
		CreatedAt:    formatTime(sess.CreatedAt),
		ModifiedAt:   formatTime(sess.ModifiedAt),
	}

	found := false
	for i := range index.Sessions {
		if index.Sessions[i].ID == sess.ID {
			index.Sessions[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Sessions = append(index.Sessions, entry)
	}

	index.Metadata.UpdatedAt = time.Now()
	return iw.save(index)
}

func (iw *IndexWriter) save(index *Index) error {
	if err := os.MkdirAll(iw.dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return os.WriteFile(iw.Path(), data, 0644)
}
