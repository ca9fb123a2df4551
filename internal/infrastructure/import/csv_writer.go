package csvimport

import (
	"encoding/csv"
	"io"
)

// Writer writes records with a fixed column order
type Writer struct {
	w       *csv.Writer
	columns []string
}

// NewWriter writes the header row and returns a Writer. Fields are
// separated by ";".
func NewWriter(w io.Writer, columns []string) (*Writer, error) {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(columns); err != nil {
		return nil, err
	}
	return &Writer{w: cw, columns: columns}, nil
}

// Write writes one record. Missing columns are left empty.
func (w *Writer) Write(record map[string]string) error {
	fields := make([]string, len(w.columns))
	for i, c := range w.columns {
		fields[i] = record[c]
	}
	return w.w.Write(fields)
}

// Flush writes buffered data to the underlying writer
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}
