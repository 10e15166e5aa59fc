package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageExtensions is the set of file extensions treated as images.
// Matching is case-insensitive.
var ImageExtensions = []string{".jpg", ".png", ".jpeg", ".ppm", ".bmp"}

// SplitRecords holds the images found under one split directory as parallel
// slices in traversal order. Paths are "<class>/<file>".
type SplitRecords struct {
	Paths         []string
	ClassIDs      []int32
	SuperclassIDs []int32

	// MaxLen is the byte length of the longest path plus one terminator byte
	MaxLen int
}

// Len returns the number of images
func (r *SplitRecords) Len() int {
	return len(r.Paths)
}

func (r *SplitRecords) add(path string, classID, superID int) {
	r.Paths = append(r.Paths, path)
	r.ClassIDs = append(r.ClassIDs, int32(classID))
	r.SuperclassIDs = append(r.SuperclassIDs, int32(superID))
	if len(path)+1 > r.MaxLen {
		r.MaxLen = len(path) + 1
	}
}

// WalkImages recursively collects every image under splitDir, following
// symbolic links. The class of an image is the name of its parent directory.
//
// The superclass is looked up in supers directly rather than through the
// joined class table, so a class missing from the mapping is reported here
// too even if the joiner was skipped.
func WalkImages(splitDir string, classes *ClassIndex, supers *SuperclassMap) (*SplitRecords, error) {
	root, err := os.Stat(splitDir)
	if err != nil {
		return nil, &DirectoryError{Path: splitDir, cause: err}
	}
	if !root.IsDir() {
		return nil, &DirectoryError{Path: splitDir, cause: fmt.Errorf("not a directory")}
	}

	records := &SplitRecords{MaxLen: 1}
	err = walkFollowingLinks(splitDir, []os.FileInfo{root}, func(file string) error {
		if !IsImageFile(file) {
			return nil
		}

		className := filepath.Base(filepath.Dir(file))
		relPath := className + "/" + filepath.Base(file)

		classID, ok := classes.ID(className)
		if !ok {
			return &ClassError{Kind: ErrUnknownClass, Class: className, Path: file}
		}
		superID, ok := supers.ID(className)
		if !ok {
			return &ClassError{Kind: ErrUnknownSuperclass, Class: className, Path: file}
		}

		records.add(relPath, classID, superID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// IsImageFile reports whether name carries one of ImageExtensions
func IsImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range ImageExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// walkFollowingLinks calls visit for every regular file below dir.
// Directories reached through a symbolic link are descended unless they are
// one of the directories already on the current path, which would loop.
// Dangling links are skipped.
func walkFollowingLinks(dir string, ancestors []os.FileInfo, visit func(string) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		var info os.FileInfo
		if entry.Type()&os.ModeSymlink != 0 {
			info, err = os.Stat(path)
			if err != nil {
				continue
			}
		} else {
			info, err = entry.Info()
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}
		}

		switch {
		case info.IsDir():
			if onPath(ancestors, info) {
				continue
			}
			if err := walkFollowingLinks(path, append(ancestors, info), visit); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if err := visit(path); err != nil {
				return err
			}
		}
	}
	return nil
}

func onPath(ancestors []os.FileInfo, info os.FileInfo) bool {
	for _, a := range ancestors {
		if os.SameFile(a, info) {
			return true
		}
	}
	return false
}
