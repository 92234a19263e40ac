package entities

import "errors"

var (
	// ErrNoPresentation is returned by session operations that need an open presentation
	ErrNoPresentation = errors.New("no presentation is currently open")

	// ErrFileNotFound is returned when a path is missing on disk or from the registry
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedType is returned when no driver handles a file's application type
	ErrUnsupportedType = errors.New("unsupported presentation type")

	// ErrIndexOutOfRange is returned when a file index does not exist in the registry
	ErrIndexOutOfRange = errors.New("no file at index")

	// ErrEmptyRegistry is returned by file navigation when no files are listed
	ErrEmptyRegistry = errors.New("no presentation files in folder")

	// ErrDriverTimeout is returned when an automation call exceeds its deadline
	ErrDriverTimeout = errors.New("automation call timed out")
)
