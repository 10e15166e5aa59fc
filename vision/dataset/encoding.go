package dataset

import (
	"bytes"
	"fmt"
)

// PathTable stores relative image paths as a Rows x Width zero-padded byte
// matrix. Each row starts with the path bytes; the rest of the row is zero,
// so every path is followed by at least one terminator.
type PathTable struct {
	Rows  int
	Width int
	Data  []byte
}

// NewPathTable copies paths into a zero-initialized table of the given width.
// width must exceed the longest path.
func NewPathTable(paths []string, width int) (PathTable, error) {
	if width < 1 {
		width = 1
	}
	table := PathTable{
		Rows:  len(paths),
		Width: width,
		Data:  make([]byte, len(paths)*width),
	}
	for i, p := range paths {
		if len(p) >= width {
			return PathTable{}, fmt.Errorf("path %q is %d bytes, table width %d leaves no terminator", p, len(p), width)
		}
		copy(table.Data[i*width:], p)
	}
	return table, nil
}

// Row returns the raw bytes of row i, padding included
func (t PathTable) Row(i int) []byte {
	return t.Data[i*t.Width : (i+1)*t.Width]
}

// Path returns the path stored in row i
func (t PathTable) Path(i int) string {
	row := t.Row(i)
	if n := bytes.IndexByte(row, 0); n >= 0 {
		row = row[:n]
	}
	return string(row)
}

// Split is the encoded form of one dataset split.
// Row i of Paths, ClassIDs[i] and SuperclassIDs[i] describe the same image.
type Split struct {
	Paths         PathTable
	ClassIDs      []int32
	SuperclassIDs []int32
}

// EncodeSplit converts walker output into its fixed-width encoding
func EncodeSplit(rec *SplitRecords) (*Split, error) {
	table, err := NewPathTable(rec.Paths, rec.MaxLen)
	if err != nil {
		return nil, err
	}
	return &Split{
		Paths:         table,
		ClassIDs:      append([]int32(nil), rec.ClassIDs...),
		SuperclassIDs: append([]int32(nil), rec.SuperclassIDs...),
	}, nil
}

// Len returns the number of images in the split
func (s *Split) Len() int {
	return s.Paths.Rows
}

// GetItem returns the relative path, class id and superclass id at index
func (s *Split) GetItem(index int) (string, int, int, error) {
	if index < 0 || index >= s.Len() {
		return "", 0, 0, fmt.Errorf("index %d out of range [0, %d)", index, s.Len())
	}
	return s.Paths.Path(index), int(s.ClassIDs[index]), int(s.SuperclassIDs[index]), nil
}

// ClassDistribution returns the number of images per class name
func (s *Split) ClassDistribution(classNames []string) map[string]int {
	dist := make(map[string]int)
	for _, id := range s.ClassIDs {
		if id >= 1 && int(id) <= len(classNames) {
			dist[classNames[id-1]]++
		}
	}
	return dist
}
