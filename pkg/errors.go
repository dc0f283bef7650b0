package evt0

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration is wrapped by every configuration validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrOpenFile represents an error when opening or creating a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrFormat represents a file that is not a readable FITS file.
type ErrFormat struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ErrFormat) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad FITS format in %q: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("bad FITS format in %q: %s", e.Filename, e.Reason)
}

func (e *ErrFormat) Unwrap() error {
	return e.Err
}

// ErrNoEventsExtension represents a file without an EVENTS binary table.
type ErrNoEventsExtension struct {
	Filename string
}

func (e *ErrNoEventsExtension) Error() string {
	return fmt.Sprintf("no EVENTS extension in %q", e.Filename)
}

// ErrColumnNotFound represents a column missing from the EVENTS table.
type ErrColumnNotFound struct {
	Column    string
	Available []string
}

func (e *ErrColumnNotFound) Error() string {
	return fmt.Sprintf("column %q not found in EVENTS table (available: %s)",
		e.Column, strings.Join(e.Available, ", "))
}

// ErrReadWindow represents a failure reading the columns of a row window.
type ErrReadWindow struct {
	Window RowWindow
	Err    error
}

func (e *ErrReadWindow) Error() string {
	return fmt.Sprintf("error reading %v: %v", e.Window, e.Err)
}

func (e *ErrReadWindow) Unwrap() error {
	return e.Err
}

// ErrWriteWindow represents a failure writing the columns of a row window.
type ErrWriteWindow struct {
	Window RowWindow
	Err    error
}

func (e *ErrWriteWindow) Error() string {
	return fmt.Sprintf("error writing %v: %v", e.Window, e.Err)
}

func (e *ErrWriteWindow) Unwrap() error {
	return e.Err
}

// ErrInvalidWindowSize represents a window size below one row.
type ErrInvalidWindowSize struct {
	Size int64
}

func (e *ErrInvalidWindowSize) Error() string {
	return fmt.Sprintf("invalid window size %d, must be at least 1 row", e.Size)
}
