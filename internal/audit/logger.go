//
//
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
	"github.com/barbamx/tello-drone-pilot/internal/config"
)

// Entry is one line of the intent audit log.
type Entry struct {
	Timestamp time.Time              `json:"ts"`
	User      string                 `json:"user"`
	Source    string                 `json:"source"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Outcome   string                 `json:"outcome"`
	Code      string                 `json:"code"`
}

type contextKey int

const (
	userKey contextKey = iota
	sourceKey
)

// WithUser returns a context carrying the acting user for audit entries.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithSource returns a context carrying the front-end that raised the intent.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// Logger appends intents to audit.jsonl, rotated by size.
type Logger struct {
	mu       sync.Mutex
	filePath string
	out      *lumberjack.Logger
}

// NewLogger opens <AuditDir>/audit.jsonl with the rotation limits in cfg.
func NewLogger(cfg config.LoggingConfig) (*Logger, error) {
	if err := os.MkdirAll(cfg.AuditDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	filePath := filepath.Join(cfg.AuditDir, "audit.jsonl")
	return &Logger{
		filePath: filePath,
		out: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
	}, nil
}

// LogIntent records one operator intent and how it ended.
func (l *Logger) LogIntent(ctx context.Context, action string, params map[string]interface{}, err error) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		User:      valueOr(ctx, userKey, "unknown"),
		Source:    valueOr(ctx, sourceKey, "local"),
		Action:    action,
		Params:    params,
		Outcome:   "SUCCESS",
		Code:      CodeFor(err),
	}
	if err != nil {
		entry.Outcome = err.Error()
	}
	l.writeEntry(entry)
}

func (l *Logger) writeEntry(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// CodeFor maps an error to the code recorded in the audit log.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return "SUCCESS"
	case errors.Is(err, adapter.ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, adapter.ErrTransportFailure):
		return "TRANSPORT_FAILURE"
	case errors.Is(err, adapter.ErrParseFailure):
		return "PARSE_FAILURE"
	case errors.Is(err, adapter.ErrRejected):
		return "REJECTED"
	case errors.Is(err, adapter.ErrDeviceNotFound):
		return "DEVICE_NOT_FOUND"
	}

	// sentinel errors elsewhere are named by their code, e.g. errors.New("SHUTTING_DOWN")
	for e := err; e != nil; e = errors.Unwrap(e) {
		if isCode(e.Error()) {
			return e.Error()
		}
	}
	return "ERROR"
}

func isCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}
	return true
}

// Rotate starts a new audit file, keeping the old one as a backup.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return errors.New("audit logger closed")
	}
	return l.out.Rotate()
}

// FilePath returns the active audit file.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Close closes the audit file. Later writes are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

func valueOr(ctx context.Context, key contextKey, fallback string) string {
	if ctx == nil {
		return fallback
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v
	}
	return fallback
}
