// Package publications provides best-effort lookup clients for
// publications referencing a trial, plus the durable log of lookups
// that failed.
package publications

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// FailureEntry is one failed lookup, kept for offline remediation.
type FailureEntry struct {
	NCTID      string            `json:"nct_id"`
	LookupType string            `json:"lookup_type"`
	Error      string            `json:"error"`
	Timestamp  string            `json:"timestamp"`
	Details    map[string]string `json:"details"`
}

// FailureLog accumulates failed lookups and rewrites the backing JSON
// file wholesale after every new entry. Durability is at-least-once: a
// crash between Record calls loses nothing already flushed.
type FailureLog struct {
	mu      sync.Mutex
	path    string
	entries []FailureEntry
	logger  *slog.Logger
}

// NewFailureLog creates a failure log backed by path. Each run starts
// with an empty log; the file is replaced on the first failure.
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{
		path:   path,
		logger: slog.Default(),
	}
}

// Record appends one failure and flushes the whole log to disk. Flush
// errors are logged, never returned: the failure log must not itself
// fail a scoring run.
func (l *FailureLog) Record(nctID, lookupType string, err error, details map[string]string) {
	if details == nil {
		details = map[string]string{}
	}

	entry := FailureEntry{
		NCTID:      nctID,
		LookupType: lookupType,
		Error:      err.Error(),
		Timestamp:  time.Now().Format(time.RFC3339),
		Details:    details,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)

	if l.path == "" {
		return
	}
	data, merr := json.MarshalIndent(l.entries, "", "  ")
	if merr != nil {
		l.logger.Warn("Could not marshal failure log", "error", merr)
		return
	}
	if werr := os.WriteFile(l.path, data, 0o644); werr != nil {
		l.logger.Warn("Could not save failure log", "path", l.path, "error", werr)
	}
}

// Entries returns a copy of the recorded failures.
func (l *FailureLog) Entries() []FailureEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]FailureEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Summary groups failure counts by lookup type.
func (l *FailureLog) Summary() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[string]int)
	for _, e := range l.entries {
		counts[e.LookupType]++
	}
	return counts
}

// Len returns the number of recorded failures.
func (l *FailureLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
