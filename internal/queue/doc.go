// Package queue persists render jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages the database connection, schema initialization, status
// transitions, and progress updates. Jobs capture the configured audio
// sources, produced artifacts, and failure details so workers can coordinate
// without additional state.
//
// The database is transient storage for in-flight jobs rather than a
// long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
