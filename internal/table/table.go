// Package table implements the typed record table handed between pipeline
// stages. A table carries a statically declared schema checked once at
// construction; missing or mistyped columns become constructible validation
// errors instead of late runtime faults.
package table

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the wire format for date cells.
const DateLayout = "2006-01-02"

// Kind identifies the type of a column.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindDate
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsNumeric reports whether the kind participates in numeric statistics.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// Column declares one table column.
type Column struct {
	Name     string
	Kind     Kind
	Required bool
}

// Schema is an ordered, immutable set of column declarations.
type Schema struct {
	cols  []Column
	index map[string]int
}

// NewSchema builds a schema from column declarations. Duplicate or empty
// column names are rejected.
func NewSchema(cols ...Column) (*Schema, error) {
	s := &Schema{
		cols:  make([]Column, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	copy(s.cols, cols)
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d: empty name", i)
		}
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		s.index[c.Name] = i
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Use for static schemas.
func MustSchema(cols ...Column) *Schema {
	s, err := NewSchema(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns the column declarations in order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.cols) }

// Lookup returns the declaration and position of a column by name.
func (s *Schema) Lookup(name string) (Column, int, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, -1, false
	}
	return s.cols[i], i, true
}

// Has reports whether the schema declares the named column.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Extend returns a new schema with additional columns appended.
func (s *Schema) Extend(cols ...Column) (*Schema, error) {
	all := make([]Column, 0, len(s.cols)+len(cols))
	all = append(all, s.cols...)
	all = append(all, cols...)
	return NewSchema(all...)
}

// Value is one typed cell. The zero Value is a null int cell.
type Value struct {
	kind Kind
	ok   bool
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Int returns a non-null integer cell.
func Int(v int64) Value { return Value{kind: KindInt, ok: true, i: v} }

// Float returns a non-null float cell.
func Float(v float64) Value { return Value{kind: KindFloat, ok: true, f: v} }

// String returns a non-null string cell.
func String(v string) Value { return Value{kind: KindString, ok: true, s: v} }

// Date returns a non-null date cell, truncated to the day.
func Date(v time.Time) Value {
	return Value{kind: KindDate, ok: true, t: v.Truncate(24 * time.Hour)}
}

// Null returns a null cell of the given kind.
func Null(k Kind) Value { return Value{kind: k} }

// Kind returns the cell kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return !v.ok }

// AsInt returns the integer payload; zero when null.
func (v Value) AsInt() int64 { return v.i }

// AsString returns the string payload; empty when null.
func (v Value) AsString() string { return v.s }

// AsDate returns the date payload; zero time when null.
func (v Value) AsDate() time.Time { return v.t }

// AsFloat returns the numeric payload as a float64, converting integer
// cells. Zero when null.
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Equal reports exact cell equality (kind, nullness and payload).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.ok != o.ok {
		return false
	}
	if !v.ok {
		return true
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindDate:
		return v.t.Equal(o.t)
	}
	return false
}

// Encode renders the cell in its CSV wire form. Null encodes as the empty
// string.
func (v Value) Encode() string {
	if !v.ok {
		return ""
	}
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDate:
		return v.t.Format(DateLayout)
	default:
		return v.s
	}
}

// Parse decodes a wire cell into a value of the given kind. Empty input and
// unparseable input both decode to null; garbage in the source is carried as
// nulls and dealt with by the cleaning stage.
func Parse(raw string, k Kind) Value {
	if raw == "" {
		return Null(k)
	}
	switch k {
	case KindInt:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Int(n)
		}
		// Some writers emit integers as floats (e.g. "2024.0").
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f == float64(int64(f)) {
			return Int(int64(f))
		}
		return Null(k)
	case KindFloat:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Float(f)
		}
		return Null(k)
	case KindDate:
		if t, err := time.Parse(DateLayout, raw); err == nil {
			return Date(t)
		}
		return Null(k)
	default:
		return String(raw)
	}
}

// Row is one record, positionally aligned with the table schema.
type Row []Value

// Table is an ordered sequence of rows sharing one schema.
type Table struct {
	schema *Schema
	rows   []Row
}

// New creates an empty table over the given schema.
func New(schema *Schema) *Table {
	return &Table{schema: schema}
}

// Schema returns the table schema.
func (t *Table) Schema() *Schema { return t.schema }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Append validates a row against the schema (arity and per-cell kind) and
// adds it to the table.
func (t *Table) Append(row Row) error {
	if len(row) != t.schema.Len() {
		return fmt.Errorf("row has %d cells, schema has %d columns", len(row), t.schema.Len())
	}
	for i, v := range row {
		if v.Kind() != t.schema.cols[i].Kind {
			return fmt.Errorf("column %q: cell kind %s, want %s",
				t.schema.cols[i].Name, v.Kind(), t.schema.cols[i].Kind)
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns the i-th row. The returned slice is shared, not copied;
// tables are treated as immutable once a downstream stage reads them.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Value returns the cell at row i, named column. False when the column is
// not declared.
func (t *Table) Value(i int, name string) (Value, bool) {
	_, idx, ok := t.schema.Lookup(name)
	if !ok {
		return Value{}, false
	}
	return t.rows[i][idx], true
}

// Column returns every cell of the named column in row order.
func (t *Table) Column(name string) ([]Value, error) {
	_, idx, ok := t.schema.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("column %q not declared", name)
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[idx]
	}
	return out, nil
}

// ConstantInt verifies that the named integer column holds a single constant
// value across all rows and returns it. Used for the year-column invariant.
func (t *Table) ConstantInt(name string) (int64, error) {
	vals, err := t.Column(name)
	if err != nil {
		return 0, err
	}
	var have bool
	var c int64
	for _, v := range vals {
		if v.IsNull() {
			continue
		}
		if !have {
			c = v.AsInt()
			have = true
			continue
		}
		if v.AsInt() != c {
			return 0, fmt.Errorf("column %q is not constant: %d != %d", name, v.AsInt(), c)
		}
	}
	if !have {
		return 0, fmt.Errorf("column %q has no values", name)
	}
	return c, nil
}
