package history

import (
	"errors"
	"fmt"
)

// Errors returned by history operations.
var (
	// ErrNotFound indicates a required file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFormat indicates a log with a bad magic tag or unsupported version.
	ErrInvalidFormat = errors.New("invalid history format")

	// ErrOutOfRange indicates an operation whose position or length does not
	// fit a log record.
	ErrOutOfRange = errors.New("record out of range")

	// ErrIO matches every *IOError via errors.Is.
	ErrIO = errors.New("history i/o error")

	// ErrNothingToUndo indicates there is no applied operation left.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates there is no undone operation to reapply.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrClosed indicates the history was already closed.
	ErrClosed = errors.New("history is closed")
)

// IOError records a failed read, write or flush on a history file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("history %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
