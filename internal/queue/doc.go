// Package queue persists transcription tasks in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-task recovery, and atomic status claims
// so multiple workers can poll the same database safely. Tasks capture
// progress, detected segments, per-segment transcription results, and
// assembled output paths so stages can coordinate without additional state.
//
// The database is treated as transient storage for in-flight tasks rather
// than a long-term archive. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package queue
