package formats

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is returned when an excel table lacks a column a parser
// needs.
var ErrMissingColumn = errors.New("missing table column")

// Table is a tab-separated excel table. The first line names the columns;
// blank lines are dropped.
type Table struct {
	Name    string
	Rows    [][]string
	columns map[string]int
}

// ParseTable splits text into header and rows. Line endings may be CRLF or LF.
func ParseTable(name, text string) *Table {
	lines := strings.Split(text, "\n")

	t := &Table{Name: name, columns: make(map[string]int)}
	for i, h := range strings.Split(strings.TrimRight(lines[0], "\r"), "\t") {
		if _, dup := t.columns[h]; !dup {
			t.columns[h] = i
		}
	}

	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		t.Rows = append(t.Rows, strings.Split(line, "\t"))
	}
	return t
}

// Columns returns the indices of the named columns.
func (t *Table) Columns(names ...string) ([]int, error) {
	cols := make([]int, len(names))
	for i, name := range names {
		c, ok := t.columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, t.Name, name)
		}
		cols[i] = c
	}
	return cols, nil
}

// Field returns column col of row, or "" for short rows.
func Field(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
