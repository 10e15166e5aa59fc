package dataset

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrDirectoryNotFound is returned when a required split directory is missing
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrMalformedMapping is returned when the superclass mapping file cannot be parsed into rows of names
	ErrMalformedMapping = errors.New("malformed superclass mapping")

	// ErrCardinalityMismatch is returned when the mapping names a different number of classes than were discovered
	ErrCardinalityMismatch = errors.New("class count does not match superclass mapping")

	// ErrMissingSuperclass is returned when a discovered class has no superclass row
	ErrMissingSuperclass = errors.New("class has no superclass")

	// ErrUnknownClass is returned when an image sits under a directory that is not a known class
	ErrUnknownClass = errors.New("unknown class")

	// ErrUnknownSuperclass is returned when an image's class is absent from the superclass mapping
	ErrUnknownSuperclass = errors.New("unknown superclass for class")
)

// MappingError describes a malformed superclass mapping file. A class listed
// more than once is malformed too, as it would have no single superclass.
//
// errors.Is(err, ErrMalformedMapping) reports true for every MappingError.
type MappingError struct {
	Path   string
	Line   int
	Reason string
	cause  error
}

func (e *MappingError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<reader>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", ErrMalformedMapping, loc, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedMapping, loc, e.Reason)
}

func (e *MappingError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrMalformedMapping, e.cause}
	}
	return []error{ErrMalformedMapping}
}

// CardinalityError reports how many classes were discovered versus how many the mapping names.
type CardinalityError struct {
	Classes int
	Mapped  int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("%s: %d classes discovered, %d named in mapping", ErrCardinalityMismatch, e.Classes, e.Mapped)
}

func (e *CardinalityError) Unwrap() error { return ErrCardinalityMismatch }

// ClassError ties a class-level failure to the offending class and, when known, the file that exposed it.
type ClassError struct {
	Kind  error
	Class string
	Path  string
}

func (e *ClassError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%v %q (%s)", e.Kind, e.Class, e.Path)
	}
	return fmt.Sprintf("%v %q", e.Kind, e.Class)
}

func (e *ClassError) Unwrap() error { return e.Kind }

// DirectoryError names the directory that was expected but not found.
type DirectoryError struct {
	Path  string
	cause error
}

func (e *DirectoryError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrDirectoryNotFound, e.Path, e.cause)
	}
	return fmt.Sprintf("%s: %s", ErrDirectoryNotFound, e.Path)
}

func (e *DirectoryError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrDirectoryNotFound, e.cause}
	}
	return []error{ErrDirectoryNotFound}
}

// RequireDir returns a *DirectoryError unless path exists and is a directory
// (symbolic links are followed).
func RequireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &DirectoryError{Path: path, cause: err}
	}
	if !info.IsDir() {
		return &DirectoryError{Path: path, cause: errors.New("not a directory")}
	}
	return nil
}
