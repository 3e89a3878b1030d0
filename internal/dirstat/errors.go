package dirstat

import "errors"

var (
	// ErrNotFound is returned when the path to inspect does not exist.
	ErrNotFound = errors.New("path does not exist")
	// ErrNotADirectory is returned when a directory was required.
	ErrNotADirectory = errors.New("not a directory")
	// ErrEmpty is returned when no entry with a positive size is left after filtering.
	ErrEmpty = errors.New("no data found")
)
