package terminal

import (
	"strings"
	"testing"
)

func TestCommandBuffer_BackspaceCorrection(t *testing.T) {
	t.Parallel()

	cb := NewCommandBuffer(nil)

	cb.Feed([]byte("hello"))
	cb.Feed([]byte{0x7F, 0x7F, 0x7F})
	cb.Feed([]byte("p"))

	if got := cb.Current(); got != "hep" {
		t.Errorf("Current() = %q, want %q", got, "hep")
	}
}

func TestCommandBuffer_SimpleCorrection(t *testing.T) {
	t.Parallel()

	cb := NewCommandBuffer(nil)

	cb.Feed([]byte("cl"))
	cb.Feed([]byte{0x08})
	cb.Feed([]byte("oder1 help"))

	if got := cb.Current(); got != "coder1 help" {
		t.Errorf("Current() = %q, want %q", got, "coder1 help")
	}
}

func TestCommandBuffer_BackspaceOnEmptyBuffer(t *testing.T) {
	t.Parallel()

	cb := NewCommandBuffer(nil)

	// Only backspaces on a fresh buffer must not underflow or panic
	cb.Feed([]byte{0x7F, 0x08, 0x7F, 0x08, 0x7F})

	if got := cb.Current(); got != "" {
		t.Errorf("Current() = %q, want empty", got)
	}
}

func TestCommandBuffer_BackspacesExceedingBufferLength(t *testing.T) {
	t.Parallel()

	cb := NewCommandBuffer(nil)

	cb.Feed([]byte("ab"))
	cb.Feed([]byte{0x7F, 0x7F, 0x7F, 0x7F, 0x7F})
	cb.Feed([]byte("x"))

	if got := cb.Current(); got != "x" {
		t.Errorf("Current() = %q, want %q", got, "x")
	}
}

func TestCommandBuffer_InterleavedBackspaces(t *testing.T) {
	t.Parallel()

	cb := NewCommandBuffer(nil)

	cb.Feed([]byte{'a', 0x7F, 'b', 'c', 0x08, 'd'})

	if got := cb.Current(); got != "bd" {
		t.Errorf("Current() = %q, want %q", got, "bd")
	}
}

func TestCommandBuffer_ControlBytesDiscarded(t *testing.T) {
	t.Parallel()

	cb := NewCommandBuffer(nil)

	// ESC, BEL, TAB and other control bytes below 0x20 carry no text
	cb.Feed([]byte{0x1B, 'l', 0x07, 's', 0x09, 0x00})

	if got := cb.Current(); got != "ls" {
		t.Errorf("Current() = %q, want %q", got, "ls")
	}
}

func TestCommandBuffer_NewlineCompletesCommand(t *testing.T) {
	t.Parallel()

	var completed []string
	cb := NewCommandBuffer(func(cmd string) {
		completed = append(completed, cmd)
	})

	cb.Feed([]byte("echo hi\r"))
	cb.Feed([]byte("ls -la\n"))

	if len(completed) != 2 {
		t.Fatalf("completed %d commands, want 2", len(completed))
	}
	if completed[0] != "echo hi" {
		t.Errorf("completed[0] = %q, want %q", completed[0], "echo hi")
	}
	if completed[1] != "ls -la" {
		t.Errorf("completed[1] = %q, want %q", completed[1], "ls -la")
	}
	if got := cb.Current(); got != "" {
		t.Errorf("Current() after newline = %q, want empty", got)
	}
}

func TestCommandBuffer_BareNewlinesNotReported(t *testing.T) {
	t.Parallel()

	var completed []string
	cb := NewCommandBuffer(func(cmd string) {
		completed = append(completed, cmd)
	})

	cb.Feed([]byte("\r\n\r\n"))

	if len(completed) != 0 {
		t.Errorf("completed %d commands, want 0", len(completed))
	}
}

func TestCommandBuffer_CorrectionThenCompletion(t *testing.T) {
	t.Parallel()

	var completed []string
	cb := NewCommandBuffer(func(cmd string) {
		completed = append(completed, cmd)
	})

	cb.Feed([]byte("cl"))
	cb.Feed([]byte{0x7F})
	cb.Feed([]byte("oder1 help\r"))

	if len(completed) != 1 || completed[0] != "coder1 help" {
		t.Fatalf("completed = %v, want [coder1 help]", completed)
	}
}

// Multi-byte UTF-8 sequences are handled one byte at a time, so one
// backspace pops a single byte, not the whole rune. Documented limitation.
func TestCommandBuffer_MultiByteHandledBytewise(t *testing.T) {
	t.Parallel()

	cb := NewCommandBuffer(nil)

	cb.Feed([]byte("é")) // 0xC3 0xA9
	cb.Feed([]byte{0x7F})

	if got := len(cb.Current()); got != 1 {
		t.Errorf("buffer length after one backspace = %d, want 1", got)
	}

	cb.Feed([]byte{0x7F})
	if got := cb.Current(); got != "" {
		t.Errorf("Current() = %q, want empty", got)
	}
}

func TestCommandBuffer_Reset(t *testing.T) {
	t.Parallel()

	cb := NewCommandBuffer(nil)

	cb.Feed([]byte(strings.Repeat("x", 100)))
	cb.Reset()

	if got := cb.Current(); got != "" {
		t.Errorf("Current() after Reset = %q, want empty", got)
	}
}
