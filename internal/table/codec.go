package table

import (
	"encoding/csv"
	"fmt"
	"io"

	"datapipe/pkg/contracts/fault"
)

// EncodeCSV writes the table in CSV form: schema names as the header row,
// cells in wire form, nulls as empty strings.
func EncodeCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, t.Schema().Len())
	for i, c := range t.Schema().Columns() {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, t.Schema().Len())
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			record[j] = v.Encode()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// DecodeCSV reads CSV data into a table with the given schema. Header
// columns are matched by name: columns the schema does not declare are
// ignored, and a declared required column missing from the header is an
// invalid_schema error. Cells that fail to parse decode to null.
func DecodeCSV(r io.Reader, schema *Schema) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fault.New(fault.CodeInvalidSchema, "empty input, no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}
	for _, c := range schema.Columns() {
		if _, ok := pos[c.Name]; !ok && c.Required {
			return nil, fault.New(fault.CodeInvalidSchema, "required column %q absent from input", c.Name)
		}
	}

	t := New(schema)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		row := make(Row, schema.Len())
		for j, c := range schema.Columns() {
			idx, ok := pos[c.Name]
			if !ok || idx >= len(record) {
				row[j] = Null(c.Kind)
				continue
			}
			row[j] = Parse(record[idx], c.Kind)
		}
		if err := t.Append(row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return t, nil
}
