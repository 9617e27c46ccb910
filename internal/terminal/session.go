package terminal

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/piyushgupta53/termbridge/internal/monitoring"
	"github.com/piyushgupta53/termbridge/internal/types"
)

// Session binds one PTY-backed process to one command buffer and its
// metadata. At most one connection owns a session at a time; the registry,
// not the connection, owns the session's lifecycle.
type Session struct {
	ID         string
	WorkingDir string

	mu             sync.Mutex
	state          types.SessionState
	ownerConnID    string
	dims           types.Dimensions
	createdAt      time.Time
	lastActivityAt time.Time
	proc           Proc

	cmdbuf  *CommandBuffer
	history *History
	metrics *monitoring.Collector
}

func newSession(id, workingDir string, dims types.Dimensions, historySize int, metrics *monitoring.Collector) *Session {
	now := time.Now()

	s := &Session{
		ID:             id,
		WorkingDir:     workingDir,
		state:          types.SessionStateCreating,
		dims:           dims,
		createdAt:      now,
		lastActivityAt: now,
		history:        NewHistory(historySize),
		metrics:        metrics,
	}

	s.cmdbuf = NewCommandBuffer(func(cmd string) {
		s.history.Append(cmd)
		s.metrics.CommandLogged()
		logrus.WithFields(logrus.Fields{
			"session_id": id,
			"command":    cmd,
		}).Debug("Logical command completed")
	})

	return s
}

// attach binds the spawned process and moves the session to active
func (s *Session) attach(proc Proc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proc = proc
	s.state = types.SessionStateActive
}

// State returns the current lifecycle state
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state types.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Owner returns the id of the connection currently owning this session,
// or "" when unowned
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerConnID
}

// SetOwner reassigns the owning connection
func (s *Session) SetOwner(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerConnID = connID
}

// Touch updates the last-activity timestamp
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivityAt = time.Now()
}

// Write forwards raw input to the PTY and feeds the command buffer. Input
// arriving while the session is closing is dropped silently so a straggling
// event never races a dying PTY.
func (s *Session) Write(data []byte) {
	s.mu.Lock()
	if s.state != types.SessionStateActive || s.proc == nil {
		state := s.state
		s.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"session_id": s.ID,
			"state":      state,
		}).Debug("Dropping input for non-active session")
		return
	}
	proc := s.proc
	s.lastActivityAt = time.Now()
	s.mu.Unlock()

	if _, err := proc.Write(data); err != nil {
		logrus.WithError(err).WithField("session_id", s.ID).Warn("Failed to write to PTY")
		return
	}

	s.cmdbuf.Feed(data)
	s.metrics.InputBytes(len(data))
}

// Resize updates the terminal dimensions and propagates them to the PTY
func (s *Session) Resize(dims types.Dimensions) {
	if !dims.Valid() {
		logrus.WithFields(logrus.Fields{
			"session_id": s.ID,
			"cols":       dims.Cols,
			"rows":       dims.Rows,
		}).Warn("Ignoring resize with non-positive dimensions")
		return
	}

	s.mu.Lock()
	if s.state != types.SessionStateActive || s.proc == nil {
		s.mu.Unlock()
		return
	}
	s.dims = dims
	proc := s.proc
	s.lastActivityAt = time.Now()
	s.mu.Unlock()

	// Resize on an exited process logs inside the wrapper, not fatal
	_ = proc.Resize(dims)
}

// Proc returns the underlying process, or nil before attach
func (s *Session) Proc() Proc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc
}

// IdleFor returns how long the session has been without input or output
func (s *Session) IdleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivityAt)
}

// Snapshot returns a copyable metadata view for the checkpoint API
func (s *Session) Snapshot() types.SessionSnapshot {
	s.mu.Lock()
	snap := types.SessionSnapshot{
		ID:             s.ID,
		State:          s.state,
		OwnerConnID:    s.ownerConnID,
		WorkingDir:     s.WorkingDir,
		Dimensions:     s.dims,
		CreatedAt:      s.createdAt,
		LastActivityAt: s.lastActivityAt,
	}
	s.mu.Unlock()

	snap.CommandHistory = s.history.Recent()
	return snap
}

// close tears the session down: the state moves to closing, the PTY is
// killed, and the state reaches closed once the process confirms exit.
// Safe to call more than once.
func (s *Session) close() {
	s.mu.Lock()
	if s.state == types.SessionStateClosing || s.state == types.SessionStateClosed {
		s.mu.Unlock()
		return
	}
	proc := s.proc
	s.state = types.SessionStateClosing
	s.mu.Unlock()

	if proc == nil {
		s.setState(types.SessionStateClosed)
		return
	}

	proc.Kill()
	go func() {
		<-proc.Done()
		s.setState(types.SessionStateClosed)
	}()
}
