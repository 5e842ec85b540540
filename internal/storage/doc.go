// Package storage keeps a journal of dispatched notifications.
//
// Drivers:
//   - "file": JSON Lines, one entry per line
//   - "sqlite": SQLite database (modernc.org/sqlite, no cgo)
//
// An empty driver (or "none") disables the journal.
package storage
