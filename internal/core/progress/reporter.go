// Package progress tracks one run's observable state: how many URLs are done,
// a status label, and a bounded history of log lines. A snapshot goes out
// after every state change so UI transports can mirror the run live.
package progress

import (
	"fmt"
	"sync"
	"time"

	"harvester/internal/logger"
)

type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const (
	// maxEntries is the hard cap on retained log lines. When the buffer is
	// full the oldest trimCount entries go at once to amortize trimming.
	maxEntries = 500
	trimCount  = 100

	// snapshotLogs is how many recent lines each snapshot carries.
	snapshotLogs = 50
)

type Entry struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the externally visible run state.
type Snapshot struct {
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Status    string  `json:"status"`
	Logs      []Entry `json:"logs"`
}

// Reporter is the only writer of a run's progress state. Pipeline workers
// report through it rather than mutating shared fields.
type Reporter struct {
	mu        sync.Mutex
	log       *logger.Logger
	processed int
	total     int
	status    string
	entries   []Entry
	emit      func(Snapshot)
}

// New creates a reporter for a run of total unique URLs. emit may be nil.
func New(log *logger.Logger, total int, emit func(Snapshot)) *Reporter {
	return &Reporter{log: log, total: total, status: "Running", emit: emit}
}

func (r *Reporter) Infof(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	r.log.LogInfo(msg)
	r.record(LevelInfo, msg)
}

func (r *Reporter) Warnf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	r.log.LogWarn(msg)
	r.record(LevelWarn, msg)
}

func (r *Reporter) Errorf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	r.log.LogError(msg, nil)
	r.record(LevelError, msg)
}

// URLDone marks one more unique URL as fully processed.
func (r *Reporter) URLDone() {
	r.mu.Lock()
	r.processed++
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.dispatch(snap)
}

func (r *Reporter) SetStatus(label string) {
	r.mu.Lock()
	r.status = label
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.dispatch(snap)
}

func (r *Reporter) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// LogCount reports how many entries the buffer currently holds.
func (r *Reporter) LogCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Reporter) record(level Level, msg string) {
	r.mu.Lock()
	if len(r.entries) >= maxEntries {
		r.entries = r.entries[trimCount:]
	}
	r.entries = append(r.entries, Entry{Level: level, Message: msg, Timestamp: time.Now()})
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.dispatch(snap)
}

func (r *Reporter) snapshotLocked() Snapshot {
	start := 0
	if len(r.entries) > snapshotLogs {
		start = len(r.entries) - snapshotLogs
	}
	logs := make([]Entry, len(r.entries)-start)
	copy(logs, r.entries[start:])
	return Snapshot{Processed: r.processed, Total: r.total, Status: r.status, Logs: logs}
}

// dispatch runs the emit hook outside r.mu; the hook may block on I/O or call
// back into the reporter without stalling other workers.
func (r *Reporter) dispatch(s Snapshot) {
	if r.emit == nil {
		return
	}
	r.emit(s)
}
