// Package progress writes the wbstrack activity log. Every command that
// changes a project appends to a timestamped file under the logs directory
// with one line per operation, promotion and dispatch failure.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// timestampFormat is the format for log timestamps.
const timestampFormat = "2006-01-02 15:04:05"

// Logger writes timestamped activity to a log file and optional io.Writer.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	writer    io.Writer // optional live output
	startTime time.Time
	projectID string
	logPath   string
	errors    int
}

// Config holds logger configuration.
type Config struct {
	LogsDir   string    // Directory for log files
	ProjectID string    // Project the session works on
	Command   string    // CLI command, e.g. "review"
	Actor     string    // User running the command
	Writer    io.Writer // Optional additional writer for live output
}

// NewLogger creates a logger that writes to a timestamped log file.
// Log files are stored in LogsDir with format: <timestamp>-<project-id>.log
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.LogsDir == "" {
		return nil, fmt.Errorf("logs dir is required")
	}
	if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	// Generate log filename: YYYYMMDD-HHMMSS-<project-id>.log
	timestamp := time.Now().Format("20060102-150405")
	logPath := filepath.Join(cfg.LogsDir, fmt.Sprintf("%s-%s.log", timestamp, sanitizeFilename(cfg.ProjectID)))

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	l := &Logger{
		file:      f,
		writer:    cfg.Writer,
		startTime: time.Now(),
		projectID: cfg.ProjectID,
		logPath:   logPath,
	}

	l.writef("# wbstrack activity log\n")
	l.writef("Project: %s\n", cfg.ProjectID)
	if cfg.Command != "" {
		l.writef("Command: %s\n", cfg.Command)
	}
	if cfg.Actor != "" {
		l.writef("Actor: %s\n", cfg.Actor)
	}
	l.writef("Started: %s\n", time.Now().Format(timestampFormat))
	l.writef("%s\n\n", strings.Repeat("-", 60))

	return l, nil
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.logPath
}

// ProjectID returns the project identifier.
func (l *Logger) ProjectID() string {
	return l.projectID
}

// Printf writes a timestamped message to the log.
func (l *Logger) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.line(fmt.Sprintf("[%s] %s\n", time.Now().Format(timestampFormat), msg))
}

// Errorf logs an error message.
func (l *Logger) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
	l.line(fmt.Sprintf("[%s] ERROR: %s\n", time.Now().Format(timestampFormat), msg))
}

// Section writes a section header to the log.
func (l *Logger) Section(title string) {
	l.writef("\n--- %s ---\n", title)
}

// Exit logs the outcome and duration of the session.
func (l *Logger) Exit(outcome string, progress int) {
	l.mu.Lock()
	errs := l.errors
	l.mu.Unlock()

	l.writef("\n%s\n", strings.Repeat("-", 60))
	l.writef("Outcome: %s\n", outcome)
	l.writef("Project progress: %d%%\n", progress)
	if errs > 0 {
		l.writef("Errors: %d\n", errs)
	}
	l.writef("Duration: %s\n", l.elapsed())
	l.writef("Completed: %s\n", time.Now().Format(timestampFormat))
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// line writes a log line to the file and, if set, to the live writer.
func (l *Logger) line(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		fmt.Fprint(l.file, s)
	}
	if l.writer != nil {
		fmt.Fprint(l.writer, s)
	}
}

func (l *Logger) writef(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		fmt.Fprintf(l.file, format, args...)
	}
}

func (l *Logger) elapsed() string {
	d := time.Since(l.startTime).Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// sanitizeFilename converts a project ID to a safe filename component.
func sanitizeFilename(s string) string {
	// Replace path separators and special chars with dashes
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, " ", "-")

	// Keep only alphanumeric, dashes, underscores, and dots
	var clean strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			clean.WriteRune(r)
		}
	}
	result := clean.String()

	for strings.Contains(result, "--") {
		result = strings.ReplaceAll(result, "--", "-")
	}
	result = strings.Trim(result, "-")

	if len(result) > 100 {
		result = result[:100]
		result = strings.TrimRight(result, "-")
	}

	if result == "" {
		return "unnamed"
	}
	return result
}
