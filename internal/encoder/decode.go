package encoder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// Table is a decoded tabular file.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named header column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Decode reads a file produced by Encode. Every row must have as many fields
// as the header.
func Decode(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("tabular file has no header row")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cr.FieldsPerRecord = len(header)

	table := &Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(table.Rows)+1, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func DecodeFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	return Decode(file)
}
