package datasource

import (
	"fmt"
	"strconv"
)

// Table is a parsed extract: a header and rows aligned positionally with it
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// NewTable builds a table, disambiguating header names the way the legacy
// tooling did: unnamed columns become "Unnamed: <i>" and repeated names get a
// ".1", ".2", ... suffix.
func NewTable(name string, columns []string, rows [][]string) *Table {
	t := &Table{
		Name:    name,
		Columns: disambiguate(columns),
		Rows:    rows,
	}
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
	return t
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the header contains the column
func (t *Table) HasColumn(column string) bool {
	_, ok := t.index[column]
	return ok
}

// ColumnIndex returns the header position of a column or -1
func (t *Table) ColumnIndex(column string) int {
	if i, ok := t.index[column]; ok {
		return i
	}
	return -1
}

// Value returns the field of row aligned with column, or "" when the column
// is unknown or the row is shorter than the header.
func (t *Table) Value(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.Rows) {
		return ""
	}
	fields := t.Rows[row]
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}

// RequireColumns returns an error naming the first missing column
func (t *Table) RequireColumns(columns ...string) error {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return fmt.Errorf("%w: %s has no column %q", ErrMissingColumn, t.Name, c)
		}
	}
	return nil
}

func disambiguate(columns []string) []string {
	out := make([]string, len(columns))
	seen := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			c = "Unnamed: " + strconv.Itoa(i)
		}
		name := c
		if n, dup := seen[c]; dup {
			for {
				n++
				name = c + "." + strconv.Itoa(n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[c] = n
		}
		if _, ok := seen[name]; !ok {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
