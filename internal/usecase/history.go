package usecase

import (
	"sync"
	"time"

	"auravoice/internal/domain"
)

// historyRing keeps the last N conversation turns for display. Nothing is
// persisted; oldest entries are discarded first.
type historyRing struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	limit   int
}

func newHistoryRing(limit int) *historyRing {
	if limit <= 0 {
		limit = 50
	}
	return &historyRing{limit: limit}
}

func (h *historyRing) Append(entry domain.HistoryEntry) {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if overflow := len(h.entries) - h.limit; overflow > 0 {
		h.entries = append([]domain.HistoryEntry(nil), h.entries[overflow:]...)
	}
}

func (h *historyRing) Snapshot() []domain.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
