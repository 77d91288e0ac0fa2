// Package sqlite provides SQLite-backed implementations of the catalog
// index and the run history.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Both stores share one database connection:
//
//   - CatalogIndex: queryable mirror of the image catalog
//   - RunStore: summaries of catalog, download, extract and consolidate runs
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory.
//
// # Data Location
//
// The database is stored at <data_dir>/metadata.db.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
