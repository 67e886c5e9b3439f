// Package converter normalizes heterogeneous vendor product JSON into a
// fixed-schema tabular export.
//
// The package is organized around a small pipeline:
//
//	raw bytes -> decoded JSON -> ExtractProducts (shape resolution)
//	          -> StandardizeRecord (one canonical row per product)
//	          -> duplicate-key filter -> RowSink
//
// Vendor exports arrive in several incompatible layouts (single product
// documents, paginated search results in array or object form, bare product
// lists), and the same piece of data hides under different field names from
// one export to the next. Resolution is deliberately best-effort and
// first-match-wins: a row is always produced, with empty strings standing in
// for data that could not be located.
//
// The Converter type drives the pipeline over many files concurrently and is
// the only entry point callers outside this package need. This package has no
// HTTP or CLI dependencies; those fronts live in internal/web and cmd/convert.
package converter
