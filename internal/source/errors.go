package source

import "fmt"

// ReadError represents an unreadable or corrupt source unit (one database
// row, one log line, one file). Callers skip the unit and continue.
type ReadError struct {
	Source string
	Unit   string // row key, file path, or line reference
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("source read error [%s] %s: %v", e.Source, e.Unit, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// SchemaError represents a source unit that does not match the expected
// shape. Callers skip the unit and continue.
type SchemaError struct {
	Source string
	Unit   string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch [%s] %s: %v", e.Source, e.Unit, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
