// Package logging wires log/slog with the handlers used by scribe: a console
// handler for interactive use and a JSON handler for log files and machine
// consumers. It also exposes typed attribute helpers so call sites stay
// consistent about field names.
package logging
