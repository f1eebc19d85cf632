package core

import (
	"errors"
	"fmt"
	"strings"
)

// Level names a layer of the classification taxonomy.
type Level string

const (
	LevelGroup    Level = "group"
	LevelSubgroup Level = "subgroup"
	LevelCode     Level = "code"
)

// ErrNoRecurring is returned by recurrence planning when no record is flagged
// as recurring. It is distinct from a plan that generates zero records.
var ErrNoRecurring = errors.New("no recurring payables configured")

// ValidationError reports missing or invalid input. Fields lists the offending
// field names; Msg carries a reason when the problem is not a missing value.
type ValidationError struct {
	Fields []string
	Msg    string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Msg == "" && len(e.Fields) > 0:
		return "validation failed: missing " + strings.Join(e.Fields, ", ")
	case len(e.Fields) > 0:
		return fmt.Sprintf("validation failed: %s (%s)", e.Msg, strings.Join(e.Fields, ", "))
	default:
		return "validation failed: " + e.Msg
	}
}

// DuplicateNameError reports a name collision at one taxonomy level.
type DuplicateNameError struct {
	Level Level
	Name  string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Level, e.Name)
}

// NotFoundError reports an operation on a missing record or taxonomy node.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// PersistenceError wraps a backing store failure. It is logged, never
// surfaced through an interaction.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ImportFormatError reports a malformed backup, taxonomy file or spreadsheet.
type ImportFormatError struct {
	Source string
	Err    error
}

func (e *ImportFormatError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Source, e.Err)
}

func (e *ImportFormatError) Unwrap() error { return e.Err }

func missing(fields ...string) error {
	return &ValidationError{Fields: fields}
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: []string{field}, Msg: msg}
}
