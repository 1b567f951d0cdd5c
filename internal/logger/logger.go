// Package logger is a small leveled wrapper over the standard log package.
// Each level gets its own colour when the output is a terminal.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level orders log severities; messages below the configured level are dropped.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	OffLevel
)

var (
	defaultLogger *Logger

	debugPrintf = color.New(color.FgCyan).SprintfFunc()
	infoPrintf  = color.New(color.FgGreen).SprintfFunc()
	warnPrintf  = color.New(color.FgYellow).SprintfFunc()
	errorPrintf = color.New(color.FgRed).SprintfFunc()
)

// Logger is the process-wide sink behind the package functions.
type Logger struct {
	logger *log.Logger
	level  Level
	mu     sync.Mutex
}

func init() {
	defaultLogger = &Logger{
		logger: log.New(os.Stderr, "", log.LstdFlags),
		level:  InfoLevel,
	}
}

// ParseLevel maps a config string ("debug", "info", "warn", "error", "off")
// to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "off", "none":
		return OffLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// SetLevel sets the minimum level that is written.
func SetLevel(level Level) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = level
}

// SetOutput redirects log output. Colour is disabled unless w is stdout or stderr.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.logger = log.New(w, "", log.LstdFlags)

	if f, ok := w.(*os.File); !ok || (f != os.Stdout && f != os.Stderr) {
		color.NoColor = true
	}
}

func (l *Logger) print(level Level, paint func(string, ...interface{}) string, prefix, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level > level {
		return
	}
	l.logger.Print(paint(prefix+format, v...))
}

func Debug(format string, v ...interface{}) {
	defaultLogger.print(DebugLevel, debugPrintf, "[DEBUG] ", format, v...)
}

func Info(format string, v ...interface{}) {
	defaultLogger.print(InfoLevel, infoPrintf, "[INFO] ", format, v...)
}

func Warn(format string, v ...interface{}) {
	defaultLogger.print(WarnLevel, warnPrintf, "[WARN] ", format, v...)
}

func Error(format string, v ...interface{}) {
	defaultLogger.print(ErrorLevel, errorPrintf, "[ERROR] ", format, v...)
}
