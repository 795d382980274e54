// Package api defines the transport-friendly payloads shared by the HTTP
// server and the CLI, plus read-only services that convert queue records
// into those payloads.
package api
