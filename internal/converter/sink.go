package converter

// sink.go defines the output contract for standardized rows and the CSV
// implementation used by both the CLI and the web server.
//
// The CSV output is tuned for spreadsheet tools: it starts with a UTF-8 BOM
// so Excel auto-detects the encoding (the "utf-8-sig" convention), and a
// blank row follows the header so Excel reliably recognizes it as a header.

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM is the UTF-8 byte-order mark written ahead of the CSV content.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RowSink receives standardized rows from a conversion run.
// WriteHeader is called exactly once before any rows; WriteRows may be
// called any number of times with batches of arbitrary size.
type RowSink interface {
	WriteHeader(header []string) error
	WriteRows(rows []Row) error
}

// CSVSink writes rows as Excel-compatible CSV to an underlying writer.
type CSVSink struct {
	raw io.Writer
	w   *csv.Writer
}

// NewCSVSink creates a CSV sink over w. The caller owns w and is
// responsible for closing it after the run completes.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{raw: w, w: csv.NewWriter(w)}
}

// WriteHeader writes the BOM, the header row, and the trailing blank row.
func (s *CSVSink) WriteHeader(header []string) error {
	if _, err := s.raw.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	if err := s.w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := s.w.Write(make([]string, len(header))); err != nil {
		return fmt.Errorf("write header spacer: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

// WriteRows writes a batch of rows in StandardHeaders column order and
// flushes them to the underlying writer.
func (s *CSVSink) WriteRows(rows []Row) error {
	for _, row := range rows {
		if err := s.w.Write(row.Values()); err != nil {
			return err
		}
	}
	s.w.Flush()
	return s.w.Error()
}
