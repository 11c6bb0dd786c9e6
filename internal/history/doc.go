// Package history persists a journal of conversion outcomes in SQLite.
//
// One row is recorded per bridge Open: source, driver, requested categories,
// invocation mode, resulting layer summary, and the diagnostic on failure.
// The journal is operational bookkeeping for the CLI's history command; the
// bridge itself never depends on it.
package history
