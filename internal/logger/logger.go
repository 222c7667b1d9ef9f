// Package logger provides process-wide leveled logging for Shelf.
// Info, warning and error messages are always written; debug messages and
// section headers only appear in verbose mode (--verbose). In JSON mode
// every message is one object per line with time, levelname and message.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	format            = FormatText
	output  io.Writer = os.Stderr
	now               = time.Now
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetFormat selects text or JSON output. Unknown formats fall back to text.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if f == FormatJSON {
		format = FormatJSON
		return
	}
	format = FormatText
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		write("DEBUG", msg, args)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	if format == FormatJSON {
		write("DEBUG", "section %s", []any{name})
		return
	}
	fmt.Fprintf(output, "\n=== %s ===\n", name)
}

// Info prints an informational message.
func Info(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write("INFO", msg, args)
}

// Warn prints a warning message.
func Warn(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write("WARN", msg, args)
}

// Error prints an error message.
func Error(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write("ERROR", msg, args)
}

// write emits one line (caller must hold the read lock).
func write(level, msg string, args []any) {
	text := msg
	if len(args) > 0 {
		text = fmt.Sprintf(msg, args...)
	}
	if format != FormatJSON {
		fmt.Fprintf(output, "[%s] %s\n", level, text)
		return
	}
	line, err := json.Marshal(struct {
		Time      string `json:"time"`
		LevelName string `json:"levelname"`
		Message   string `json:"message"`
	}{
		Time:      now().UTC().Format(time.RFC3339Nano),
		LevelName: level,
		Message:   text,
	})
	if err != nil {
		line = []byte("{}")
	}
	fmt.Fprintf(output, "%s\n", line)
}
