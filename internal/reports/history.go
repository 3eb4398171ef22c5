package reports

import (
	"context"
	"sort"
	"sync"
)

// HistoryStore records generated reports.
type HistoryStore interface {
	Append(ctx context.Context, report Report) error
	// All returns every retained report, newest first.
	All(ctx context.Context) ([]Report, error)
}

type historyEntry struct {
	seq    uint64
	report Report
}

// MemoryHistory is an in-process HistoryStore. It is safe for concurrent use
// and does not survive restarts.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []historyEntry
	seq     uint64
	limit   int
}

// NewMemoryHistory returns a store retaining at most limit reports; limit <= 0
// keeps everything. When full the oldest report is dropped.
func NewMemoryHistory(limit int) *MemoryHistory {
	if limit < 0 {
		limit = 0
	}
	return &MemoryHistory{limit: limit}
}

// Append stores a copy of report.
func (h *MemoryHistory) Append(_ context.Context, report Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	h.entries = append(h.entries, historyEntry{seq: h.seq, report: report.clone()})
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	return nil
}

// All returns a snapshot ordered by GeneratedAt descending. Reports sharing a
// timestamp are returned most recently appended first.
func (h *MemoryHistory) All(_ context.Context) ([]Report, error) {
	h.mu.RLock()
	snapshot := make([]historyEntry, len(h.entries))
	copy(snapshot, h.entries)
	h.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		a, b := snapshot[i], snapshot[j]
		if !a.report.GeneratedAt.Equal(b.report.GeneratedAt) {
			return a.report.GeneratedAt.After(b.report.GeneratedAt)
		}
		return a.seq > b.seq
	})

	out := make([]Report, len(snapshot))
	for i, entry := range snapshot {
		out[i] = entry.report.clone()
	}
	return out, nil
}

// Len reports how many reports are retained.
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
