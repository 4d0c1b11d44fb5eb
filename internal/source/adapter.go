// Package source converts tool-native chat history formats into the
// canonical session model. Each adapter owns one on-disk format and is
// selected by name through the registry.
package source

import (
	"fmt"
	"sort"

	"github.com/anyspecs/anyspecs/internal/session"
)

// Filter constrains which sessions an adapter returns.
type Filter struct {
	// Project restricts results to sessions whose project name contains
	// this value (case-insensitive). Empty means the current working
	// directory's project unless AllProjects is set.
	Project string

	// SessionID restricts results to the session whose ID starts with
	// this value.
	SessionID string

	// AllProjects lifts the current-project restriction.
	AllProjects bool
}

// Adapter extracts sessions from one source format.
type Adapter interface {
	// Name returns the source tag recorded on every extracted session.
	Name() string

	// ListSessions enumerates sessions without loading message content.
	ListSessions(filter Filter) ([]session.Descriptor, error)

	// ExtractSessions fully loads the matching sessions. An unreadable
	// individual source unit is logged and skipped, never an error.
	ExtractSessions(filter Filter) ([]*session.Session, error)
}

var registry = map[string]func() (Adapter, error){}

// Register makes an adapter constructor available under name. Called from
// adapter init functions.
func Register(name string, ctor func() (Adapter, error)) {
	registry[name] = ctor
}

// New returns the adapter registered under name.
func New(name string) (Adapter, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (available: %v)", name, Names())
	}
	return ctor()
}

// Names lists registered adapter names in stable order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
