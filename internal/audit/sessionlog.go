package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SessionLogTimeFormat is the timestamp used in session log file names.
const SessionLogTimeFormat = "2006-01-02_15-04-05"

// Sink persists the command log when a session ends.
type Sink interface {
	Flush(lines []string) (path string, err error)
}

// FileSink writes one plain-text file per session under Dir, named
// <Prefix>_<timestamp>.txt.
type FileSink struct {
	Dir    string
	Prefix string
	Now    func() time.Time // defaults to time.Now
}

// NewFileSink returns a sink for dir and prefix.
func NewFileSink(dir, prefix string) *FileSink {
	return &FileSink{Dir: dir, Prefix: prefix}
}

// PathAt returns the file name a flush at t would use.
func (s *FileSink) PathAt(t time.Time) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.txt", s.Prefix, t.Format(SessionLogTimeFormat)))
}

// Flush writes lines, one per row. An existing file for the same second is
// appended to rather than replaced.
func (s *FileSink) Flush(lines []string) (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	path := s.PathAt(now())

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return path, fmt.Errorf("failed to create session log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return path, fmt.Errorf("failed to open session log: %w", err)
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return path, fmt.Errorf("failed to write session log: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return path, fmt.Errorf("failed to sync session log: %w", err)
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("failed to close session log: %w", err)
	}
	return path, nil
}
