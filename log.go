package sqlmap

import "github.com/kataras/golog"

// logger is the interface the builder and pool log through. It is
// satisfied by *golog.Logger; tests substitute a no-op implementation
// so output does not leak into `go test -v`.
type logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// defaultLogger returns a golog logger writing at Info level, matching
// the level the rest of the pack's services (natansdj-lets) default to.
func defaultLogger() logger {
	l := golog.New()
	l.SetLevel("info")
	return l
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
