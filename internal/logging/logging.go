// Package logging wraps the standard library logger with the bracketed
// component-tag convention the teacher uses throughout internal/ (e.g.
// "[Poller]", "[BlockScanner]", "[ALERT]" in internal/mempool/poller.go
// and internal/api/routes.go). No structured-logging dependency is
// introduced — the rest of the retrieval pack does not converge on one
// library strongly enough to justify displacing the teacher's own style.
package logging

import "log"

// Logger tags every line with a fixed component name.
type Logger struct {
	tag string
}

// New returns a Logger that prefixes every line with "[tag]".
func New(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) Printf(format string, args ...any) {
	log.Printf("["+l.tag+"] "+format, args...)
}

func (l *Logger) Println(args ...any) {
	all := append([]any{"[" + l.tag + "]"}, args...)
	log.Println(all...)
}
