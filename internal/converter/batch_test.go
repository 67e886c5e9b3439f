package converter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestFile drops a JSON document into dir and returns its path.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// readRows parses the sink output back into data rows (skipping the BOM,
// header, and spacer).
func readRows(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(buf.Bytes(), utf8BOM)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read back CSV: %v", err)
	}
	if len(records) < 2 {
		t.Fatalf("output missing header and spacer: %d records", len(records))
	}
	return records[2:]
}

func TestRunDeduplicatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	doc := `{"product": {"item_id": "42", "title": "Hammer", "price": 19.99}}`
	writeTestFile(t, dir, "a.json", doc)
	writeTestFile(t, dir, "b.json", doc)

	var buf bytes.Buffer
	stats, err := New(Options{}).Run(context.Background(),
		Input{Pattern: filepath.Join(dir, "*.json")}, NewCSVSink(&buf))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.FilesProcessed != 2 {
		t.Errorf("FilesProcessed = %d, want 2", stats.FilesProcessed)
	}
	if stats.RecordsProcessed != 1 {
		t.Errorf("RecordsProcessed = %d, want 1", stats.RecordsProcessed)
	}
	if stats.DuplicatesSkipped != 1 {
		t.Errorf("DuplicatesSkipped = %d, want 1", stats.DuplicatesSkipped)
	}
	if stats.FilesWithErrors != 0 {
		t.Errorf("FilesWithErrors = %d, want 0", stats.FilesWithErrors)
	}

	rows := readRows(t, &buf)
	if len(rows) != 1 {
		t.Fatalf("data rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row[0] != "42" {
		t.Errorf("Item ID = %q, want %q", row[0], "42")
	}
	if row[4] != "19.99" {
		t.Errorf("Rate = %q, want %q", row[4], "19.99")
	}
	if row[5] != "HD" || row[15] != "43%" {
		t.Errorf("constant columns wrong: Source=%q CF.Markup=%q", row[5], row[15])
	}
}

func TestRunAllowDuplicates(t *testing.T) {
	dir := t.TempDir()
	doc := `{"product": {"item_id": "42", "title": "Hammer"}}`
	writeTestFile(t, dir, "a.json", doc)
	writeTestFile(t, dir, "b.json", doc)

	var buf bytes.Buffer
	stats, err := New(Options{AllowDuplicates: true}).Run(context.Background(),
		Input{Pattern: filepath.Join(dir, "*.json")}, NewCSVSink(&buf))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.RecordsProcessed != 2 {
		t.Errorf("RecordsProcessed = %d, want 2", stats.RecordsProcessed)
	}
	if stats.DuplicatesSkipped != 0 {
		t.Errorf("DuplicatesSkipped = %d, want 0", stats.DuplicatesSkipped)
	}
	if rows := readRows(t, &buf); len(rows) != 2 {
		t.Errorf("data rows = %d, want 2", len(rows))
	}
}

func TestRunToleratesMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "good.json", `{"product": {"item_id": "1", "title": "Saw"}}`)
	writeTestFile(t, dir, "bad.json", `{"product": {unterminated`)

	var buf bytes.Buffer
	stats, err := New(Options{}).Run(context.Background(),
		Input{Pattern: filepath.Join(dir, "*.json")}, NewCSVSink(&buf))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.FilesProcessed != 2 {
		t.Errorf("FilesProcessed = %d, want 2", stats.FilesProcessed)
	}
	if stats.FilesWithErrors != 1 {
		t.Errorf("FilesWithErrors = %d, want 1", stats.FilesWithErrors)
	}
	if stats.RecordsProcessed != 1 {
		t.Errorf("RecordsProcessed = %d, want 1", stats.RecordsProcessed)
	}

	found := false
	for _, msg := range stats.Errors {
		if strings.Contains(msg, "error parsing") && strings.Contains(msg, "bad.json") {
			found = true
		}
	}
	if !found {
		t.Errorf("no parse error recorded for bad.json: %v", stats.Errors)
	}
}

func TestRunNoMatches(t *testing.T) {
	var buf bytes.Buffer
	stats, err := New(Options{}).Run(context.Background(),
		Input{Pattern: filepath.Join(t.TempDir(), "*.json")}, NewCSVSink(&buf))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(stats.Errors) != 1 || !strings.Contains(stats.Errors[0], "no JSON files found") {
		t.Errorf("Errors = %v, want a single no-files message", stats.Errors)
	}
	if buf.Len() != 0 {
		t.Error("sink received output for an empty run")
	}
}

func TestRunFallbackShapes(t *testing.T) {
	dir := t.TempDir()
	// Neither document matches a recognized layout; both fall back to being
	// treated as product-like data directly.
	writeTestFile(t, dir, "object.json", `{"title": "Chisel", "price": "$12.50"}`)
	writeTestFile(t, dir, "array.json", `[{"title": "Mallet"}, "junk"]`)

	var buf bytes.Buffer
	stats, err := New(Options{}).Run(context.Background(),
		Input{Pattern: filepath.Join(dir, "*.json")}, NewCSVSink(&buf))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.RecordsProcessed != 2 {
		t.Errorf("RecordsProcessed = %d, want 2", stats.RecordsProcessed)
	}

	found := false
	for _, msg := range stats.Errors {
		if strings.Contains(msg, "skipped non-object item") {
			found = true
		}
	}
	if !found {
		t.Errorf("no skipped-item message recorded: %v", stats.Errors)
	}
}

func TestRunEmptyDocumentReported(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "empty.json", `{"search_results": []}`)

	var buf bytes.Buffer
	stats, err := New(Options{}).Run(context.Background(),
		Input{Pattern: filepath.Join(dir, "*.json")}, NewCSVSink(&buf))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.FilesWithErrors != 1 {
		t.Errorf("FilesWithErrors = %d, want 1", stats.FilesWithErrors)
	}
	if len(stats.Errors) != 1 || !strings.Contains(stats.Errors[0], "no product data found") {
		t.Errorf("Errors = %v, want a no-product-data message", stats.Errors)
	}
}

func TestRunSkipsBOM(t *testing.T) {
	dir := t.TempDir()
	content := append(append([]byte{}, utf8BOM...),
		[]byte(`{"product": {"item_id": "7", "title": "Level"}}`)...)
	path := filepath.Join(dir, "bom.json")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write bom.json: %v", err)
	}

	var buf bytes.Buffer
	stats, err := New(Options{}).Run(context.Background(),
		Input{Paths: []string{path}}, NewCSVSink(&buf))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.RecordsProcessed != 1 {
		t.Errorf("RecordsProcessed = %d, want 1", stats.RecordsProcessed)
	}
}

func TestRunExplicitPathsWin(t *testing.T) {
	dir := t.TempDir()
	a := writeTestFile(t, dir, "a.json", `{"product": {"item_id": "1", "title": "A"}}`)
	writeTestFile(t, dir, "b.json", `{"product": {"item_id": "2", "title": "B"}}`)

	var buf bytes.Buffer
	stats, err := New(Options{}).Run(context.Background(),
		Input{Pattern: filepath.Join(dir, "*.json"), Paths: []string{a}}, NewCSVSink(&buf))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesProcessed != 1 {
		t.Errorf("FilesProcessed = %d, want 1", stats.FilesProcessed)
	}
}

func TestRunSinkFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.json", `{"product": {"item_id": "1", "title": "A"}}`)

	_, err := New(Options{}).Run(context.Background(),
		Input{Pattern: filepath.Join(dir, "*.json")}, NewCSVSink(&failingWriter{}))
	if err == nil {
		t.Fatal("Run on a broken sink did not fail")
	}
}

func TestRunProgressReported(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.json", `{"product": {"item_id": "1", "title": "A"}}`)
	writeTestFile(t, dir, "b.json", `{"product": {"item_id": "2", "title": "B"}}`)

	var messages []string
	opts := Options{
		Workers: 1,
		Progress: func(done, total int, message string) {
			if total != 2 {
				t.Errorf("total = %d, want 2", total)
			}
			messages = append(messages, message)
		},
	}

	var buf bytes.Buffer
	if _, err := New(opts).Run(context.Background(),
		Input{Pattern: filepath.Join(dir, "*.json")}, NewCSVSink(&buf)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Start, one per file, completion.
	if len(messages) != 4 {
		t.Fatalf("progress calls = %d, want 4: %v", len(messages), messages)
	}
	if messages[0] != "Starting file scan" {
		t.Errorf("first message = %q", messages[0])
	}
	if !strings.Contains(messages[len(messages)-1], "Conversion complete") {
		t.Errorf("last message = %q", messages[len(messages)-1])
	}
}

func TestRunBatchFlushing(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "list.json", `{"products": [
		{"item_id": "1", "title": "A"},
		{"item_id": "2", "title": "B"},
		{"item_id": "3", "title": "C"}
	]}`)

	var buf bytes.Buffer
	stats, err := New(Options{BatchSize: 2}).Run(context.Background(),
		Input{Pattern: filepath.Join(dir, "*.json")}, NewCSVSink(&buf))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.RecordsProcessed != 3 {
		t.Errorf("RecordsProcessed = %d, want 3", stats.RecordsProcessed)
	}
	if rows := readRows(t, &buf); len(rows) != 3 {
		t.Errorf("data rows = %d, want 3", len(rows))
	}
}

func TestStatsMarshalJSON(t *testing.T) {
	stats := Stats{
		FilesProcessed:   2,
		RecordsProcessed: 5,
		Errors:           []string{"boom"},
	}

	data, err := stats.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	out := string(data)
	for _, key := range []string{
		`"files_processed":2`,
		`"records_processed":5`,
		`"duplicates_skipped":0`,
		`"elapsed_time":0`,
		`"errors":["boom"]`,
	} {
		if !strings.Contains(out, key) {
			t.Errorf("marshaled stats missing %s: %s", key, out)
		}
	}
}
