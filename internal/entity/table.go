package entity

import (
	"fmt"
	"time"
)

// ValueKind discriminates the scalar type stored in a cell.
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueString
	ValueNumber
	ValueDate
)

// Value is a single table cell. Exactly one of Str, Num or Time is
// meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Time time.Time
}

func StringValue(s string) Value  { return Value{Kind: ValueString, Str: s} }
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }
func DateValue(t time.Time) Value { return Value{Kind: ValueDate, Time: t} }

// Column is a named, ordered sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Table is a rectangular set of named columns. Rows are positionally
// aligned across columns. A table is immutable once built: a new
// upload produces a new Table and the session swaps the reference.
type Table struct {
	Columns []Column

	byName map[string]int
}

// NewTable validates column lengths and name uniqueness and builds
// the lookup index.
func NewTable(columns []Column) (*Table, error) {
	t := &Table{
		Columns: columns,
		byName:  make(map[string]int, len(columns)),
	}

	rows := -1
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrInvalidTable, i)
		}
		if _, exists := t.byName[col.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidTable, col.Name)
		}
		t.byName[col.Name] = i

		if rows == -1 {
			rows = len(col.Values)
		} else if len(col.Values) != rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d",
				ErrInvalidTable, col.Name, len(col.Values), rows)
		}
	}

	return t, nil
}

// Rows returns the number of rows in the table.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Column returns the named column, or false if the table has none.
func (t *Table) Column(name string) (*Column, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return &t.Columns[idx], true
}

// HasColumn reports whether the table contains the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// ColumnNames returns the column names in original order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// DistinctStrings returns the distinct non-empty string values of the
// named column, in first-seen order.
func (t *Table) DistinctStrings(name string) []string {
	col, ok := t.Column(name)
	if !ok {
		return nil
	}

	seen := make(map[string]struct{}, len(col.Values))
	var out []string
	for _, v := range col.Values {
		if v.Kind != ValueString || v.Str == "" {
			continue
		}
		if _, dup := seen[v.Str]; dup {
			continue
		}
		seen[v.Str] = struct{}{}
		out = append(out, v.Str)
	}
	return out
}

// ColumnMapping designates the roles of the uploaded table's columns.
// Every column not named here is treated as a defect-type column when
// Defects is empty.
type ColumnMapping struct {
	Identifier string   `json:"identifier_column"`
	Date       string   `json:"date_column"`
	Inspected  string   `json:"inspected_column"`
	Rejected   string   `json:"rejected_column"`
	Defects    []string `json:"defect_columns,omitempty"`
}
