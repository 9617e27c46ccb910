package terminal

import (
	"fmt"
	"testing"
)

func TestHistory_AppendAndRecent(t *testing.T) {
	t.Parallel()

	h := NewHistory(5)

	h.Append("first")
	h.Append("second")

	recent := h.Recent()
	if len(recent) != 2 {
		t.Fatalf("Recent() length = %d, want 2", len(recent))
	}
	if recent[0] != "first" || recent[1] != "second" {
		t.Errorf("Recent() = %v, want [first second]", recent)
	}
}

func TestHistory_EvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)

	for i := 1; i <= 5; i++ {
		h.Append(fmt.Sprintf("cmd-%d", i))
	}

	recent := h.Recent()
	if len(recent) != 3 {
		t.Fatalf("Recent() length = %d, want 3", len(recent))
	}
	want := []string{"cmd-3", "cmd-4", "cmd-5"}
	for i, cmd := range want {
		if recent[i] != cmd {
			t.Errorf("Recent()[%d] = %q, want %q", i, recent[i], cmd)
		}
	}
	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
}

func TestHistory_ZeroCapacityDefaults(t *testing.T) {
	t.Parallel()

	h := NewHistory(0)
	h.Append("cmd")

	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}
