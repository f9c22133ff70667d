package api

import (
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

// Record is a single activity log line shown in the dashboard console.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// ActivityLog is a thread-safe ring buffer of activity records.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []Record
	cap     int
}

// NewActivityLog creates an activity log with the given capacity.
func NewActivityLog(capacity int) *ActivityLog {
	return &ActivityLog{
		entries: make([]Record, 0, capacity),
		cap:     capacity,
	}
}

// Append adds a record, dropping the oldest when full.
func (al *ActivityLog) Append(level, message string) {
	al.mu.Lock()
	defer al.mu.Unlock()

	rec := Record{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}

	if len(al.entries) >= al.cap {
		copy(al.entries, al.entries[1:])
		al.entries[len(al.entries)-1] = rec
	} else {
		al.entries = append(al.entries, rec)
	}
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (al *ActivityLog) Recent(limit int) []Record {
	al.mu.RLock()
	defer al.mu.RUnlock()

	n := len(al.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = al.entries[len(al.entries)-1-i]
	}
	return out
}

// Clear removes all records.
func (al *ActivityLog) Clear() {
	al.mu.Lock()
	defer al.mu.Unlock()
	al.entries = al.entries[:0]
}

// captureWriter adapts ActivityLog to io.Writer for the log package.
type captureWriter struct {
	al *ActivityLog
}

const logStamp = "2006/01/02 15:04:05 "

// stripStamp removes the LstdFlags timestamp from a captured log line.
func stripStamp(msg string) string {
	if len(msg) < len(logStamp) {
		return msg
	}
	if _, err := time.Parse(strings.TrimSpace(logStamp), msg[:len(logStamp)-1]); err != nil {
		return msg
	}
	return msg[len(logStamp):]
}

// logLevel classifies a captured line for the dashboard console.
func logLevel(msg string) string {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "error"), strings.Contains(m, "fail"):
		return "error"
	case strings.Contains(m, "warn"):
		return "warn"
	}
	return "info"
}

func (cw *captureWriter) Write(p []byte) (int, error) {
	msg := stripStamp(strings.TrimSpace(string(p)))
	if msg == "" {
		return len(p), nil
	}
	cw.al.Append(logLevel(msg), msg)
	return len(p), nil
}

// InstallLogCapture routes the standard log package into the activity log
// in addition to its current output.
func InstallLogCapture(al *ActivityLog) {
	multi := io.MultiWriter(&captureWriter{al: al}, log.Writer())
	log.SetOutput(multi)
	log.SetFlags(log.LstdFlags)
}
