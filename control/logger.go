// control/logger.go
// Author: momentics <momentics@gmail.com>
//
// Thin logging shim. The engine never imports log/slog or a third-party
// logging library directly; every package that needs to log takes a
// *Logger, keeping a small internal facade over the stdlib log.Logger.

package control

import (
	"fmt"
	"io"
	"log"
)

// Logger prefixes every line with the owning component's name and forwards
// to a standard library log.Logger. nil is a valid *Logger: all methods on
// a nil Logger are no-ops, so collaborators can accept a *Logger without
// forcing every caller to construct one in tests.
type Logger struct {
	std *log.Logger
}

// NewLogger wraps w with a component-tagged standard library logger.
func NewLogger(w io.Writer, component string) *Logger {
	return &Logger{std: log.New(w, component+": ", log.LstdFlags|log.Lmicroseconds)}
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.std == nil {
		return
	}
	l.std.Output(2, fmt.Sprintf(format, args...))
}

func (l *Logger) Println(args ...any) {
	if l == nil || l.std == nil {
		return
	}
	l.std.Output(2, fmt.Sprintln(args...))
}
