package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// SuperclassRow is one line of a superclass mapping file.
// ID is the 1-based line number; Members lists the classes on that line in file order.
type SuperclassRow struct {
	ID      int
	Members []string
}

// SuperclassMap maps class names to superclass ids
type SuperclassMap struct {
	rows         []SuperclassRow
	classToSuper map[string]int
}

// ParseSuperclassRows reads a mapping where each line holds the whitespace
// separated class names of one superclass. Trailing blank lines are ignored;
// a blank line followed by more rows is malformed because it would shift
// every later superclass id. A class may appear only once in the file.
func ParseSuperclassRows(r io.Reader) ([]SuperclassRow, error) {
	var rows []SuperclassRow
	seen := make(map[string]int)
	blankAt := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			if blankAt == 0 {
				blankAt = line
			}
			continue
		}
		if blankAt != 0 {
			return nil, &MappingError{Line: blankAt, Reason: "empty superclass row"}
		}

		row := SuperclassRow{ID: len(rows) + 1, Members: fields}
		for _, name := range fields {
			if prev, dup := seen[name]; dup {
				return nil, &MappingError{
					Line:   line,
					Reason: fmt.Sprintf("class %q already listed on line %d", name, prev),
				}
			}
			seen[name] = line
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, &MappingError{Line: line + 1, Reason: "read failed", cause: err}
	}
	return rows, nil
}

// NewSuperclassMap indexes parsed rows by class name
func NewSuperclassMap(rows []SuperclassRow) *SuperclassMap {
	sm := &SuperclassMap{
		rows:         rows,
		classToSuper: make(map[string]int),
	}
	for _, row := range rows {
		for _, name := range row.Members {
			sm.classToSuper[name] = row.ID
		}
	}
	return sm
}

// LoadSuperclassMap parses the mapping file at path
func LoadSuperclassMap(path string) (*SuperclassMap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &MappingError{Path: path, Reason: "cannot open", cause: err}
	}
	defer file.Close()

	rows, err := ParseSuperclassRows(file)
	if err != nil {
		if me, ok := err.(*MappingError); ok {
			me.Path = path
		}
		return nil, err
	}
	return NewSuperclassMap(rows), nil
}

// ID returns the superclass id of a class
func (sm *SuperclassMap) ID(class string) (int, bool) {
	id, ok := sm.classToSuper[class]
	return id, ok
}

// Len returns the number of distinct class names in the mapping
func (sm *SuperclassMap) Len() int {
	return len(sm.classToSuper)
}

// NumSuperclasses returns the number of rows
func (sm *SuperclassMap) NumSuperclasses() int {
	return len(sm.rows)
}

// Rows returns the parsed rows. The slice must not be modified.
func (sm *SuperclassMap) Rows() []SuperclassRow {
	return sm.rows
}
