// Package audit records a durable append-only entry for every successfully
// sent message/response pair. The log is write-only from the engine's
// perspective; it is consumed externally for auditing and debugging.
package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Entry is one audit record.
type Entry struct {
	SessionID   string
	Prompt      string
	Response    string
	TotalTokens int
	Model       string
}

// Log appends JSONL records to a file opened in append-only mode.
type Log struct {
	logger zerolog.Logger
	file   *os.File
}

// Open opens (or creates) the audit log at path.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Log{
		logger: zerolog.New(file).With().Timestamp().Logger(),
		file:   file,
	}, nil
}

// DefaultPath returns the default audit log location
// (~/.local/share/azor/audit.jsonl).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "azor", "audit.jsonl"), nil
}

// Append writes one record. Failures are non-fatal to message delivery;
// callers log and continue.
func (l *Log) Append(e Entry) error {
	if l == nil {
		return nil
	}
	l.logger.Log().
		Str("session_id", e.SessionID).
		Str("prompt", e.Prompt).
		Str("response_text", e.Response).
		Int("total_tokens", e.TotalTokens).
		Str("model", e.Model).
		Msg("message_sent")
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
