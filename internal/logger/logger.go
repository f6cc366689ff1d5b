// Package logger provides leveled printf-style logging. The MCP
// protocol owns stdout, so output goes to stderr or a log file.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Level orders log severities from Debug up to Fatal.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String returns the level's uppercase name.
func (l Level) String() string {
	if l < DebugLevel || l > FatalLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Logger is the printf-style logging interface shared across the server.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
	Fatal(format string, v ...any)
	SetLevel(level Level)
}

// LogConfig selects where log lines go and which levels are kept.
type LogConfig struct {
	// Output destination: "file" or "stderr"
	Output string
	// Log level: "debug", "info", "warn", "error", "fatal"
	Level string
	// FilePath for file output (only used when Output is "file")
	FilePath string
}

type standardLogger struct {
	out   *log.Logger
	level Level
}

// NewLogger builds a logger from config, reading the CRITIQUE_MCP_LOG_*
// environment variables for any empty field. With no explicit output it
// picks stderr inside containers and a file under ~/.critique-mcp
// otherwise; stdout stays reserved for the MCP stdio transport.
func NewLogger(config LogConfig) (Logger, error) {
	output := orEnv(config.Output, "CRITIQUE_MCP_LOG_OUTPUT")
	if output == "" {
		output = autoOutput()
	}
	writer, err := openOutput(output, config.FilePath)
	if err != nil {
		return nil, err
	}
	return &standardLogger{
		out:   log.New(writer, "", log.LstdFlags),
		level: parseLevel(orEnv(config.Level, "CRITIQUE_MCP_LOG_LEVEL")),
	}, nil
}

// NewNoOpLogger creates a logger that discards all output (useful for tests)
func NewNoOpLogger() Logger {
	return &standardLogger{
		out:   log.New(io.Discard, "", 0),
		level: FatalLevel,
	}
}

func openOutput(output, filePath string) (io.Writer, error) {
	switch output {
	case "stderr":
		return os.Stderr, nil
	case "file":
		path := orEnv(filePath, "CRITIQUE_MCP_LOG_FILE_PATH")
		if path == "" {
			var err error
			if path, err = defaultLogPath(); err != nil {
				return nil, err
			}
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return file, nil
	}
	return nil, fmt.Errorf("invalid log output: %s (expected 'file' or 'stderr')", output)
}

func defaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	dir := filepath.Join(home, ".critique-mcp")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return filepath.Join(dir, "critique.log"), nil
}

// orEnv returns value, or the named environment variable when value is empty.
func orEnv(value, envKey string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envKey)
}

// autoOutput picks stderr when running in a container, a file otherwise.
func autoOutput() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "stderr"
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "stderr"
	}
	return "file"
}

var levelsByName = map[string]Level{
	"debug":   DebugLevel,
	"info":    InfoLevel,
	"warn":    WarnLevel,
	"warning": WarnLevel,
	"error":   ErrorLevel,
	"fatal":   FatalLevel,
}

// parseLevel maps a level name to its Level, defaulting to Info.
func parseLevel(name string) Level {
	if lv, ok := levelsByName[strings.ToLower(name)]; ok {
		return lv
	}
	return InfoLevel
}

// SetLevel sets the minimum level a message needs to be written.
func (l *standardLogger) SetLevel(level Level) {
	l.level = level
}

func (l *standardLogger) Debug(format string, v ...any) { l.write(DebugLevel, format, v...) }
func (l *standardLogger) Info(format string, v ...any)  { l.write(InfoLevel, format, v...) }
func (l *standardLogger) Warn(format string, v ...any)  { l.write(WarnLevel, format, v...) }
func (l *standardLogger) Error(format string, v ...any) { l.write(ErrorLevel, format, v...) }

// Fatal logs regardless of the configured level, then exits.
func (l *standardLogger) Fatal(format string, v ...any) {
	l.out.Printf("[FATAL] %s", fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (l *standardLogger) write(level Level, format string, v ...any) {
	if level < l.level {
		return
	}
	l.out.Printf("[%s] %s", level, fmt.Sprintf(format, v...))
}
