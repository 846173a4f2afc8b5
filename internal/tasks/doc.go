// Package tasks runs long catalogue operations with real-time progress reporting.
//
// # Core Operations
//
//  1. [Crawler.Crawl] : Page through the catalogue for one filter set
//     - Every request waits on a shared [rate.Limiter]
//     - Pages are merged with the store's id + signature deduplication
//     - Stops at the first short page (or after a configured page cap)
//
//  2. [Crawler.Export] : Crawl several [Selection]s and write each to disk
//     - Small worker pool; failures are recorded per selection
//     - Formats: json, csv, markdown (optional cover image), txt
//     - Writes export_manifest.json summarizing the run
//
// [SelectionsBy] builds one selection per value of a filter dimension, e.g. every genre.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
