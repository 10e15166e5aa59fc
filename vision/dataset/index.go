package dataset

import (
	"fmt"
	"strings"
)

// Split directory names under a dataset root
const (
	TrainSplit = "train"
	ValSplit   = "val"
)

// Index is the persisted description of a dataset: class tables plus the
// encoded train and val splits. It is built once and read-only afterwards.
type Index struct {
	BaseDir    string
	ClassNames []string

	// ClassToSuperclass[i] is the superclass id of class id i+1
	ClassToSuperclass []int32

	Train *Split
	Val   *Split
}

// NumClasses returns the number of classes
func (idx *Index) NumClasses() int {
	return len(idx.ClassNames)
}

// Validate checks the cross-field invariants of the index
func (idx *Index) Validate() error {
	if len(idx.ClassToSuperclass) != len(idx.ClassNames) {
		return fmt.Errorf("class table has %d names but %d superclass entries", len(idx.ClassNames), len(idx.ClassToSuperclass))
	}
	for i, sc := range idx.ClassToSuperclass {
		if sc < 1 {
			return fmt.Errorf("class %d: superclass id %d out of range", i+1, sc)
		}
	}
	if err := idx.validateSplit(TrainSplit, idx.Train); err != nil {
		return err
	}
	return idx.validateSplit(ValSplit, idx.Val)
}

func (idx *Index) validateSplit(name string, s *Split) error {
	if s == nil {
		return fmt.Errorf("%s split missing", name)
	}
	if s.Paths.Width < 1 || s.Paths.Rows < 0 {
		return fmt.Errorf("%s split: path table %d x %d", name, s.Paths.Rows, s.Paths.Width)
	}
	// Compared by division so a corrupt Rows x Width cannot overflow
	if len(s.Paths.Data)%s.Paths.Width != 0 || len(s.Paths.Data)/s.Paths.Width != s.Paths.Rows {
		return fmt.Errorf("%s split: path buffer is %d bytes, want %d x %d", name, len(s.Paths.Data), s.Paths.Rows, s.Paths.Width)
	}
	if len(s.ClassIDs) != s.Paths.Rows || len(s.SuperclassIDs) != s.Paths.Rows {
		return fmt.Errorf("%s split: %d paths, %d class ids, %d superclass ids", name, s.Paths.Rows, len(s.ClassIDs), len(s.SuperclassIDs))
	}
	for i, id := range s.ClassIDs {
		if id < 1 || int(id) > len(idx.ClassNames) {
			return fmt.Errorf("%s split: row %d: class id %d out of range", name, i, id)
		}
		if want := idx.ClassToSuperclass[id-1]; s.SuperclassIDs[i] != want {
			return fmt.Errorf("%s split: row %d: superclass id %d, class %d maps to %d", name, i, s.SuperclassIDs[i], id, want)
		}
	}
	return nil
}

// String returns a short summary of the index
func (idx *Index) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Index of %s: %d classes\n", idx.BaseDir, len(idx.ClassNames)))
	if idx.Train != nil {
		sb.WriteString(fmt.Sprintf("  train: %d images\n", idx.Train.Len()))
	}
	if idx.Val != nil {
		sb.WriteString(fmt.Sprintf("  val: %d images\n", idx.Val.Len()))
	}
	return sb.String()
}
