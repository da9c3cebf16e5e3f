// Package queue persists the conversion ledger in SQLite so batch runs
// survive inspection from other processes and `hlspack status` can show
// live per-item progress.
package queue
