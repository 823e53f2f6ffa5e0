package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

// output is shared by a logger and everything derived from it through
// WithFields or WithContext
type output struct {
	stdout *log.Logger
	stderr *log.Logger
	level  atomic.Int32
	colors atomic.Bool
}

// DefaultLogger writes leveled key=value lines.
// Debug/Info -> stdout (debug in gray)
// Warn -> stderr (yellow)
// Error -> stderr (red)
// Fatal -> stderr (bold red), then exits
type DefaultLogger struct {
	out    *output
	fields Fields
}

// NewDefaultLogger creates a logger on stdout/stderr, colored when stdout is
// a terminal
func NewDefaultLogger() *DefaultLogger {
	out := &output{
		stdout: log.New(os.Stdout, "", log.LstdFlags),
		stderr: log.New(os.Stderr, "", log.LstdFlags),
	}
	out.level.Store(int32(InfoLevel))
	out.colors.Store(isTerminal(os.Stdout))
	return &DefaultLogger{out: out}
}

// NewWriterLogger creates an uncolored logger writing every level to w
func NewWriterLogger(w io.Writer, level Level) *DefaultLogger {
	l := log.New(w, "", 0)
	out := &output{stdout: l, stderr: l}
	out.level.Store(int32(level))
	return &DefaultLogger{out: out}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (d *DefaultLogger) format(level Level, err error, msg string, extra []Fields) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	if err != nil {
		fmt.Fprintf(&b, ": %v", err)
	}

	merged := d.fields
	if len(extra) > 0 {
		merged = maps.Clone(d.fields)
		if merged == nil {
			merged = make(Fields)
		}
		for _, f := range extra {
			maps.Copy(merged, f)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		fmt.Fprintf(&b, " %s=%v", k, merged[k])
	}

	if !d.out.colors.Load() {
		return b.String()
	}
	switch level {
	case DebugLevel:
		return ColorGray + b.String() + ColorReset
	case WarnLevel:
		return ColorYellow + b.String() + ColorReset
	case ErrorLevel:
		return ColorRed + b.String() + ColorReset
	case FatalLevel:
		return ColorBold + ColorRed + b.String() + ColorReset
	}
	return b.String()
}

func (d *DefaultLogger) log(level Level, err error, msg string, fields []Fields) {
	if level < Level(d.out.level.Load()) {
		return
	}

	line := d.format(level, err, msg, fields)
	if level < WarnLevel {
		d.out.stdout.Println(line)
		return
	}
	d.out.stderr.Println(line)
	if level == FatalLevel {
		os.Exit(1)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, nil, msg, fields)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, nil, msg, fields)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, nil, msg, fields)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields)
}

// WithFields returns a logger that adds fields to every line. Level and
// color changes on either logger apply to both.
func (d *DefaultLogger) WithFields(fields Fields) Logger {
	merged := make(Fields, len(d.fields)+len(fields))
	maps.Copy(merged, d.fields)
	maps.Copy(merged, fields)
	return &DefaultLogger{out: d.out, fields: merged}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields := FieldsFromContext(ctx); len(fields) > 0 {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.out.level.Store(int32(level))
}

// SetColors toggles ANSI colors
func (d *DefaultLogger) SetColors(enabled bool) {
	d.out.colors.Store(enabled)
}

// NoOpLogger discards everything. Tests install it to keep output quiet.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
