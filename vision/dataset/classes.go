package dataset

import (
	"fmt"
	"os"
	"sort"
)

// ClassIndex is the ordered class list of a dataset and its inverse.
// Class ids are 1-based: Names()[i] has id i+1.
type ClassIndex struct {
	names      []string
	classToIdx map[string]int
}

// EnumerateClasses lists the first-level entries of trainDir and assigns
// ids in byte order of their names. Every entry is treated as a class folder.
// Callers check that trainDir exists first.
func EnumerateClasses(trainDir string) (*ClassIndex, error) {
	entries, err := os.ReadDir(trainDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes in %s: %w", trainDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return NewClassIndex(names), nil
}

// NewClassIndex builds a ClassIndex from an arbitrary set of names.
// Names are sorted and duplicates dropped.
func NewClassIndex(names []string) *ClassIndex {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	ci := &ClassIndex{
		names:      make([]string, 0, len(sorted)),
		classToIdx: make(map[string]int, len(sorted)),
	}
	for _, name := range sorted {
		if _, dup := ci.classToIdx[name]; dup {
			continue
		}
		ci.names = append(ci.names, name)
		ci.classToIdx[name] = len(ci.names)
	}
	return ci
}

// Len returns the number of classes
func (ci *ClassIndex) Len() int {
	return len(ci.names)
}

// Names returns the class list in id order. The slice must not be modified.
func (ci *ClassIndex) Names() []string {
	return ci.names
}

// ID returns the 1-based id of a class
func (ci *ClassIndex) ID(name string) (int, bool) {
	id, ok := ci.classToIdx[name]
	return id, ok
}

// Name returns the class name for a 1-based id
func (ci *ClassIndex) Name(id int) (string, bool) {
	if id < 1 || id > len(ci.names) {
		return "", false
	}
	return ci.names[id-1], true
}
