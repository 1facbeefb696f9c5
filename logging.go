package helio

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Logger is the framework-wide logging interface. Modules pull it from the
// App resources; render code must never write to stdout directly.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type StdLogger struct {
	mu    sync.Mutex
	debug bool
	tag   string
	out   *log.Logger
	err   *log.Logger
}

func NewStdLogger(tag string, debug bool) *StdLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &StdLogger{
		debug: debug,
		tag:   tag,
		out:   log.New(os.Stdout, "", flags),
		err:   log.New(os.Stderr, "", flags),
	}
}

func (l *StdLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *StdLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *StdLogger) format(level, format string, args ...any) string {
	if l.tag != "" {
		return fmt.Sprintf("[%s] %s: %s", l.tag, level, fmt.Sprintf(format, args...))
	}
	return fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...))
}

func (l *StdLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.out.Print(l.format("DEBUG", format, args...))
}

func (l *StdLogger) Infof(format string, args ...any) {
	l.out.Print(l.format("INFO", format, args...))
}

func (l *StdLogger) Warnf(format string, args ...any) {
	l.err.Print(l.format("WARN", format, args...))
}

func (l *StdLogger) Errorf(format string, args ...any) {
	l.err.Print(l.format("ERROR", format, args...))
}

// LoggingModule installs a StdLogger as the Logger resource.
type LoggingModule struct {
	Tag   string
	Debug bool
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	app.addResources(NewStdLogger(m.Tag, m.Debug))
}

type nopLogger struct{}

func NewNopLogger() Logger { return &nopLogger{} }

func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// Logger returns the installed Logger resource, or a no-op logger when none
// is present. Never returns nil.
func (app *App) Logger() Logger {
	if app == nil {
		return NewNopLogger()
	}
	for _, r := range app.resources {
		if l, ok := r.(Logger); ok {
			return l
		}
	}
	return NewNopLogger()
}
