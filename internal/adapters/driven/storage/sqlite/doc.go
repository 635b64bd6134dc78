// Package sqlite provides a SQLite-backed implementation of the run history
// and scheduler ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements two store interfaces through a single database connection:
//
//   - SyncRunStore: terminal sync runs per connector
//   - SchedulerStore: scheduled task state and execution history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory, named NNN_description.up.sql. Applied versions are
// tracked in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.tributary/data/tributary.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
