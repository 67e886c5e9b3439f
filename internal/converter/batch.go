package converter

// batch.go drives the conversion pipeline over many files concurrently.
//
// A bounded pool of workers each runs the synchronous read-decode-
// standardize sequence for one file; results are consumed as workers finish,
// so output row order does not follow input file order. Duplicate tracking
// is shared across all workers through a KeySet. Rows accumulate in a buffer
// that is flushed to the sink whenever it reaches the batch size, bounding
// peak memory regardless of corpus size.
//
// Error policy: a bad file degrades that file's yield, never the batch.
// Read errors, JSON decode errors, and per-record standardization failures
// are recorded in the run statistics and processing continues. The one
// exception is the sink: if the output stream cannot be written, the run
// aborts, because the export is unusable anyway.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Defaults for the orchestrator knobs.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 10000
)

// Stats summarizes one conversion run.
type Stats struct {
	FilesProcessed    int           `json:"files_processed"`
	FilesWithErrors   int           `json:"files_with_errors"`
	RecordsProcessed  int           `json:"records_processed"`
	DuplicatesSkipped int           `json:"duplicates_skipped"`
	Errors            []string      `json:"errors"`
	Elapsed           time.Duration `json:"-"`
}

// MarshalJSON emits elapsed time in seconds, the unit status consumers
// historically expect under the elapsed_time key.
func (s Stats) MarshalJSON() ([]byte, error) {
	type alias Stats
	return json.Marshal(struct {
		alias
		ElapsedTime float64 `json:"elapsed_time"`
	}{
		alias:       alias(s),
		ElapsedTime: s.Elapsed.Seconds(),
	})
}

// ProgressFunc reports batch progress: files completed so far, total files,
// and a human-readable message. Invoked at start, after each file completes
// (not necessarily in submission order), and once at completion.
type ProgressFunc func(done, total int, message string)

// Input names the files for a run: either a glob pattern or an explicit
// list of paths. Paths wins when both are set.
type Input struct {
	Pattern string
	Paths   []string
}

// describe renders the input for diagnostics.
func (in Input) describe() string {
	if len(in.Paths) > 0 {
		return fmt.Sprintf("%d files", len(in.Paths))
	}
	return in.Pattern
}

// Options configure a Converter. Zero values select defaults.
type Options struct {
	// Workers is the size of the file-processing pool (default 4).
	Workers int

	// BatchSize is the number of rows buffered before a sink flush
	// (default 10000).
	BatchSize int

	// AllowDuplicates disables duplicate-key suppression.
	AllowDuplicates bool

	// Progress, when set, receives per-file progress updates.
	Progress ProgressFunc
}

// Converter runs conversion batches.
type Converter struct {
	workers         int
	batchSize       int
	allowDuplicates bool
	progress        ProgressFunc
}

// New creates a Converter with the given options.
func New(opts Options) *Converter {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Converter{
		workers:         opts.Workers,
		batchSize:       opts.BatchSize,
		allowDuplicates: opts.AllowDuplicates,
		progress:        opts.Progress,
	}
}

// fileResult is one worker's yield for a single file.
type fileResult struct {
	path       string
	rows       []Row
	records    int
	duplicates int
	errors     []string
}

// Run converts every file named by input and streams the resulting rows to
// sink. Per-file failures are collected in the returned Stats; only sink
// write failures (and context cancellation) abort the run early.
func (c *Converter) Run(ctx context.Context, input Input, sink RowSink) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	files := resolveInput(input)
	total := len(files)
	if total == 0 {
		msg := fmt.Sprintf("no JSON files found matching pattern: %s", input.describe())
		slog.Warn("nothing to convert", "input", input.describe())
		stats.Errors = append(stats.Errors, msg)
		stats.Elapsed = time.Since(start)
		return stats, nil
	}

	slog.Info("starting conversion", "files", total, "workers", c.workers)
	c.report(0, total, "Starting file scan")

	if err := sink.WriteHeader(StandardHeaders); err != nil {
		stats.Elapsed = time.Since(start)
		return stats, fmt.Errorf("write header: %w", err)
	}

	var keys *KeySet
	if !c.allowDuplicates {
		keys = NewKeySet()
	}

	// Buffered so workers never block on a consumer that has bailed out
	// after a sink failure.
	results := make(chan fileResult, total)
	sem := make(chan struct{}, c.workers)

	go func() {
		var wg sync.WaitGroup
		for _, path := range files {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(p string) {
				defer wg.Done()
				defer func() { <-sem }()
				results <- c.processFile(p, keys)
			}(path)
		}
		wg.Wait()
		close(results)
	}()

	var buffer []Row
	done := 0
	for res := range results {
		done++
		stats.FilesProcessed++
		stats.RecordsProcessed += res.records
		stats.DuplicatesSkipped += res.duplicates
		if len(res.errors) > 0 {
			stats.FilesWithErrors++
			stats.Errors = append(stats.Errors, res.errors...)
		}

		buffer = append(buffer, res.rows...)
		c.report(done, total, fmt.Sprintf("Processed %s (%d records, %d duplicates skipped)",
			filepath.Base(res.path), res.records, res.duplicates))

		if len(buffer) >= c.batchSize {
			if err := sink.WriteRows(buffer); err != nil {
				stats.Elapsed = time.Since(start)
				return stats, fmt.Errorf("write rows: %w", err)
			}
			buffer = nil
		}
	}

	if len(buffer) > 0 {
		if err := sink.WriteRows(buffer); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("write rows: %w", err)
		}
	}

	stats.Elapsed = time.Since(start)
	slog.Info("conversion complete",
		"files", stats.FilesProcessed,
		"records", stats.RecordsProcessed,
		"duplicates_skipped", stats.DuplicatesSkipped,
		"files_with_errors", stats.FilesWithErrors,
		"duration_ms", stats.Elapsed.Milliseconds(),
	)
	c.report(total, total, fmt.Sprintf("Conversion complete: %d records processed, %d duplicates skipped",
		stats.RecordsProcessed, stats.DuplicatesSkipped))

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// processFile reads, decodes, and standardizes one file. Every failure is
// recorded in the result rather than returned; the batch never stops for a
// single bad file.
func (c *Converter) processFile(path string, keys *KeySet) fileResult {
	res := fileResult{path: path}

	f, err := os.Open(path)
	if err != nil {
		res.errors = append(res.errors, fmt.Sprintf("error reading %s: %v", path, err))
		return res
	}
	defer f.Close()

	dec := json.NewDecoder(NewBOMSkippingReader(f))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		res.errors = append(res.errors, fmt.Sprintf("error parsing %s: %v", path, err))
		return res
	}

	items := ExtractProducts(doc)
	if items == nil {
		// Last resort: treat the document itself as product-like data.
		switch v := doc.(type) {
		case map[string]any:
			items = []FlatProduct{FlatProduct(v)}
		case []any:
			for _, elem := range v {
				if m, ok := elem.(map[string]any); ok {
					items = append(items, FlatProduct(m))
				} else {
					res.errors = append(res.errors, fmt.Sprintf("skipped non-object item in %s", path))
				}
			}
		}
	}

	for _, item := range items {
		row, err := standardizeSafe(item)
		if err != nil {
			res.errors = append(res.errors, fmt.Sprintf("error standardizing record in %s: %v", path, err))
			continue
		}
		if !row.HasData() {
			continue
		}

		if keys != nil && keys.Add(KeyFor(row)) {
			res.duplicates++
			continue
		}

		res.rows = append(res.rows, row)
		res.records++
	}

	if res.records == 0 && res.duplicates == 0 && len(res.errors) == 0 {
		res.errors = append(res.errors, fmt.Sprintf("no product data found in %s", filepath.Base(path)))
	}

	return res
}

// standardizeSafe confines an unexpected value type to the single record it
// occurred in: the record is dropped and reported, siblings are unaffected.
func standardizeSafe(item FlatProduct) (row Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			row, err = nil, fmt.Errorf("%v", r)
		}
	}()
	return StandardizeRecord(item), nil
}

// resolveInput expands the input specification into a concrete file list.
func resolveInput(input Input) []string {
	if len(input.Paths) > 0 {
		return input.Paths
	}
	if input.Pattern == "" {
		return nil
	}
	matches, err := filepath.Glob(input.Pattern)
	if err != nil {
		// Glob only fails on malformed patterns, which resolve to nothing.
		return nil
	}
	return matches
}

func (c *Converter) report(done, total int, message string) {
	if c.progress != nil {
		c.progress(done, total, message)
	}
}
