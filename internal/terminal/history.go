package terminal

import (
	"sync"
)

// History is a fixed-capacity ring of completed logical commands. The
// checkpoint API snapshots it; the cap keeps a long-lived session from
// growing without bound.
type History struct {
	mu       sync.RWMutex
	commands []string
	head     int
	size     int
}

// NewHistory creates a history with the given capacity
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{
		commands: make([]string, capacity),
	}
}

// Append records a command, evicting the oldest when full
func (h *History) Append(cmd string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.commands[h.head] = cmd
	h.head = (h.head + 1) % len(h.commands)
	if h.size < len(h.commands) {
		h.size++
	}
}

// Recent returns the stored commands, oldest first
func (h *History) Recent() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, h.size)
	start := h.head - h.size
	if start < 0 {
		start += len(h.commands)
	}
	for i := 0; i < h.size; i++ {
		out = append(out, h.commands[(start+i)%len(h.commands)])
	}
	return out
}

// Len returns the number of stored commands
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}
