// Package errors provides the structured error type shared by execkit.
// Every failure surfaced by process execution carries a machine-readable
// ErrorCode, a human-readable message, optional details and an optional
// cause, and reports whether retrying the same command is sensible.
package errors
