package usecase

import (
	"fmt"
	"testing"

	"auravoice/internal/domain"
)

func TestHistoryRingKeepsOrder(t *testing.T) {
	t.Parallel()

	ring := newHistoryRing(10)
	ring.Append(domain.HistoryEntry{Role: domain.HistoryRoleUser, Text: "book a taxi"})
	ring.Append(domain.HistoryEntry{Role: domain.HistoryRoleAssistant, Text: "taxi booked"})

	got := ring.Snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Role != domain.HistoryRoleUser || got[1].Role != domain.HistoryRoleAssistant {
		t.Fatalf("entries out of order: %+v", got)
	}
	if got[0].At.IsZero() {
		t.Fatalf("expected timestamp to be filled in")
	}
}

func TestHistoryRingDropsOldest(t *testing.T) {
	t.Parallel()

	ring := newHistoryRing(3)
	for i := 0; i < 5; i++ {
		ring.Append(domain.HistoryEntry{Role: domain.HistoryRoleUser, Text: fmt.Sprintf("turn %d", i)})
	}

	got := ring.Snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Text != "turn 2" || got[2].Text != "turn 4" {
		t.Fatalf("unexpected retained entries: %+v", got)
	}
}

func TestHistoryRingSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	ring := newHistoryRing(10)
	ring.Append(domain.HistoryEntry{Role: domain.HistoryRoleUser, Text: "original"})

	snap := ring.Snapshot()
	snap[0].Text = "mutated"

	if ring.Snapshot()[0].Text != "original" {
		t.Fatalf("snapshot mutation leaked into the ring")
	}
}
