// Package store provides a SQLite-backed ledger of harness runs.
//
// Each run is one row in runs plus its reporting stream in run_events, one
// row per event. Records are append-only:
//
//   - Runs are keyed by their run id; writing an id twice is a no-op.
//   - Every run gets a seq from a logical counter at write time. Listings
//     order by seq ASC, id ASC COLLATE BINARY and never by wall time.
//   - Events are read back in stream order (idx ASC).
//   - The request is stored in canonical JSON next to its digest, so runs of
//     the same request can be found without comparing sources.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: events are deleted with their run
package store
