package api

import (
	"sync"
	"time"
)

// CommandRecord is one dispatched printer/relay/config action with its
// outcome, kept for the dashboard's history panel.
type CommandRecord struct {
	Action     string    `json:"action"`
	Target     string    `json:"target,omitempty"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// CommandLog is a thread-safe ring buffer of command records.
type CommandLog struct {
	mu      sync.RWMutex
	entries []CommandRecord
	cap     int
}

// NewCommandLog creates a command log with the given capacity.
func NewCommandLog(capacity int) *CommandLog {
	return &CommandLog{
		entries: make([]CommandRecord, 0, capacity),
		cap:     capacity,
	}
}

// Add appends a record, dropping the oldest when full.
func (cl *CommandLog) Add(rec CommandRecord) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if len(cl.entries) >= cl.cap {
		copy(cl.entries, cl.entries[1:])
		cl.entries[len(cl.entries)-1] = rec
	} else {
		cl.entries = append(cl.entries, rec)
	}
}

// Recent returns all records, newest first.
func (cl *CommandLog) Recent() []CommandRecord {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	out := make([]CommandRecord, len(cl.entries))
	for i, j := 0, len(cl.entries)-1; j >= 0; i, j = i+1, j-1 {
		out[i] = cl.entries[j]
	}
	return out
}
