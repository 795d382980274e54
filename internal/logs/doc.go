// Package logs tails the daemon log file for CLI diagnostics.
//
// It reads with bounded memory so "show the last N lines" works on large
// files, and supports follow mode for watching a running daemon.
package logs
