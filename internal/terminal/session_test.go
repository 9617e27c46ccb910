package terminal

import (
	"testing"
	"time"

	"github.com/piyushgupta53/termbridge/internal/types"
)

func newTestSession(t *testing.T) (*Session, *fakeProc) {
	t.Helper()

	s := newSession("s1", "/tmp", types.Dimensions{Cols: 80, Rows: 24}, 10, nil)
	proc := newFakeProc()
	s.attach(proc)
	t.Cleanup(proc.Kill)

	return s, proc
}

func TestSession_WriteForwardsToProcAndBuffer(t *testing.T) {
	t.Parallel()

	s, proc := newTestSession(t)

	s.Write([]byte("echo hi\n"))

	if got := string(proc.writtenBytes()); got != "echo hi\n" {
		t.Errorf("proc received %q, want %q", got, "echo hi\n")
	}

	// The newline completed the logical command into history
	recent := s.history.Recent()
	if len(recent) != 1 || recent[0] != "echo hi" {
		t.Errorf("history = %v, want [echo hi]", recent)
	}
}

func TestSession_InputDroppedWhileClosing(t *testing.T) {
	t.Parallel()

	s, proc := newTestSession(t)

	s.close()
	s.Write([]byte("straggler"))

	// Nothing may reach a dying PTY
	if got := proc.writtenBytes(); len(got) != 0 {
		t.Errorf("proc received %q after close, want nothing", got)
	}
}

func TestSession_StateMachine(t *testing.T) {
	t.Parallel()

	s := newSession("s1", "/tmp", types.Dimensions{Cols: 80, Rows: 24}, 10, nil)
	if got := s.State(); got != types.SessionStateCreating {
		t.Errorf("initial State() = %q, want %q", got, types.SessionStateCreating)
	}

	proc := newFakeProc()
	s.attach(proc)
	if got := s.State(); got != types.SessionStateActive {
		t.Errorf("State() after attach = %q, want %q", got, types.SessionStateActive)
	}

	s.close()
	deadline := time.Now().Add(2 * time.Second)
	for s.State() != types.SessionStateClosed {
		if time.Now().After(deadline) {
			t.Fatalf("State() = %q, never reached closed", s.State())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSession_CloseWithoutProc(t *testing.T) {
	t.Parallel()

	s := newSession("s1", "/tmp", types.Dimensions{Cols: 80, Rows: 24}, 10, nil)

	s.close()

	if got := s.State(); got != types.SessionStateClosed {
		t.Errorf("State() = %q, want %q", got, types.SessionStateClosed)
	}
}

func TestSession_ResizeValidation(t *testing.T) {
	t.Parallel()

	s, proc := newTestSession(t)

	s.Resize(types.Dimensions{Cols: 0, Rows: 24})
	s.Resize(types.Dimensions{Cols: 120, Rows: 40})

	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.resizes) != 1 {
		t.Fatalf("proc saw %d resizes, want 1", len(proc.resizes))
	}
	if proc.resizes[0].Cols != 120 || proc.resizes[0].Rows != 40 {
		t.Errorf("resize = %+v, want 120x40", proc.resizes[0])
	}
}

func TestSession_SnapshotCarriesHistory(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t)
	s.SetOwner("conn-1")
	s.Write([]byte("ls\n"))

	snap := s.Snapshot()
	if snap.ID != "s1" {
		t.Errorf("snap.ID = %q, want s1", snap.ID)
	}
	if snap.OwnerConnID != "conn-1" {
		t.Errorf("snap.OwnerConnID = %q, want conn-1", snap.OwnerConnID)
	}
	if snap.State != types.SessionStateActive {
		t.Errorf("snap.State = %q, want %q", snap.State, types.SessionStateActive)
	}
	if len(snap.CommandHistory) != 1 || snap.CommandHistory[0] != "ls" {
		t.Errorf("snap.CommandHistory = %v, want [ls]", snap.CommandHistory)
	}
}
