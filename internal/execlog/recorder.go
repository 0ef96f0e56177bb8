// Package execlog records the append-only execution trail of an activation.
//
// Every step of every unit writes exactly one entry. A failed write never
// fails the step that produced it: the entry is mirrored to the structured
// logger either way, so nothing is lost silently.
package execlog

import (
	"context"
	"strings"
	"sync"
	"time"

	"postcouncil/internal/logging"
	"postcouncil/internal/types"
)

// writeTimeout bounds one log write. Writes are detached from the caller's
// cancellation so that error entries still land after a unit is cancelled.
const writeTimeout = 5 * time.Second

// Recorder appends entries to a LogWriter.
type Recorder struct {
	w   types.LogWriter
	now func() time.Time
}

// New creates a Recorder over w.
func New(w types.LogWriter) *Recorder {
	return &Recorder{w: w, now: time.Now}
}

// Record stamps and appends one entry.
func (r *Recorder) Record(ctx context.Context, e types.LogEntry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	if e.Status == "" {
		e.Status = types.LogSuccess
	}

	l := logging.WithExecution(logging.CategoryExecLog, e.ExecutionID).With(
		"step", e.Step,
		"status", string(e.Status),
		"latency_ms", e.LatencyMS,
	)
	if e.Status == types.LogError {
		l.Warn("%s failed: %s", e.Step, e.ErrorMessage)
	} else {
		l.Debug("%s %s", e.Step, e.Status)
	}

	if r.w == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.w.AppendLog(wctx, e); err != nil {
		logging.ExecLogError("append %s/%s: %v", e.ExecutionID, e.Step, err)
	}
}

// Since returns the elapsed milliseconds since start.
func Since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// Memory is an in-memory LogWriter and LogReader.
type Memory struct {
	mu      sync.Mutex
	entries []types.LogEntry
}

var (
	_ types.LogWriter = (*Memory)(nil)
	_ types.LogReader = (*Memory)(nil)
)

// AppendLog implements types.LogWriter.
func (m *Memory) AppendLog(_ context.Context, e types.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

// ListLogs implements types.LogReader.
func (m *Memory) ListLogs(_ context.Context, f types.LogFilter) ([]types.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.LogEntry
	for _, e := range m.entries {
		if !Matches(e, f) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Entries returns a copy of everything recorded so far.
func (m *Memory) Entries() []types.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.LogEntry(nil), m.entries...)
}

// Steps returns the step names recorded for executionID, in order.
func (m *Memory) Steps(executionID string) []string {
	var steps []string
	for _, e := range m.Entries() {
		if e.ExecutionID == executionID {
			steps = append(steps, e.Step)
		}
	}
	return steps
}

// Matches reports whether e passes filter f.
func Matches(e types.LogEntry, f types.LogFilter) bool {
	if !strings.HasPrefix(e.ExecutionID, f.ExecutionPrefix) {
		return false
	}
	if f.CampaignID != "" && e.CampaignID != f.CampaignID {
		return false
	}
	if f.Step != "" && e.Step != f.Step {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	return true
}
