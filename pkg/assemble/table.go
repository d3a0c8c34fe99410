package assemble

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Table is a raw tabular API response: row 0 is the header, every other row
// holds values aligned to it by position.
type Table [][]string

// UnmarshalJSON decodes a JSON array of arrays. Cells may be strings,
// numbers, booleans or null; null decodes to the empty string.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Table, len(raw))
	for i, row := range raw {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			s, err := cellString(cell)
			if err != nil {
				return fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			out[i][j] = s
		}
	}

	*t = out
	return nil
}

func cellString(cell json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(cell)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	if trimmed[0] == '[' || trimmed[0] == '{' {
		return "", fmt.Errorf("unexpected nested value %s", trimmed)
	}
	return string(trimmed), nil
}

// Header returns row 0, or nil for an empty table.
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Len returns the number of data rows (the header excluded).
func (t Table) Len() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// Row returns data row i, counting from 0 after the header.
func (t Table) Row(i int) []string {
	return t[i+1]
}

// Column returns the index of name in the header, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header() {
		if h == name {
			return i
		}
	}
	return -1
}
