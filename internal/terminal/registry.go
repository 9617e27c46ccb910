package terminal

import (
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	terrors "github.com/piyushgupta53/termbridge/internal/errors"
	"github.com/piyushgupta53/termbridge/internal/monitoring"
	"github.com/piyushgupta53/termbridge/internal/types"
)

const (
	defaultCols = 80
	defaultRows = 24
)

// RegistryConfig holds the registry's resource policy
type RegistryConfig struct {
	// MaxSessions caps simultaneously live sessions. PTYs are a scarce
	// OS resource; exceeding the cap on constrained hosts makes
	// allocation fail for unrelated processes.
	MaxSessions int

	// MinCreateInterval is the process-wide floor between two accepted
	// creations, stopping a client bug or abuse loop from exhausting
	// PTYs in a tight loop.
	MinCreateInterval time.Duration

	KillGracePeriod   time.Duration
	IdleTimeout       time.Duration
	IdleSweepInterval time.Duration
	HistorySize       int
	Shell             string
}

// Registry is the concurrency-safe map of live sessions. It is the single
// authority on the concurrency ceiling and the creation rate limit, and is
// constructed once per process and injected where needed, so tests can run
// independent instances.
type Registry struct {
	cfg     RegistryConfig
	spawn   SpawnFunc
	metrics *monitoring.Collector

	mu         sync.Mutex
	sessions   map[string]*Session
	lastCreate time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a session registry and starts its idle sweeper
func NewRegistry(cfg RegistryConfig, metrics *monitoring.Collector) *Registry {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 5
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}

	r := &Registry{
		cfg:      cfg,
		spawn:    Spawn,
		metrics:  metrics,
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}

	if cfg.IdleSweepInterval > 0 && cfg.IdleTimeout > 0 {
		go r.sweepLoop()
	}

	return r
}

// SetSpawnFunc replaces the PTY spawner. Used by tests to run against
// synthetic processes.
func (r *Registry) SetSpawnFunc(spawn SpawnFunc) {
	r.spawn = spawn
}

// CreateSession creates a new terminal session. It rejects with
// *errors.RateLimitError when called within MinCreateInterval of the last
// accepted creation, and with *errors.CapacityError when the ceiling is
// reached. The spawn itself can block on the OS; callers that must not
// block dispatch this on its own goroutine.
func (r *Registry) CreateSession(req *types.CreateRequest) (*Session, error) {
	dims, ok := types.DimensionsFrom(req.Cols, req.Rows)
	if !ok {
		dims = types.Dimensions{Cols: defaultCols, Rows: defaultRows}
	}

	r.mu.Lock()

	now := time.Now()
	if !r.lastCreate.IsZero() {
		if elapsed := now.Sub(r.lastCreate); elapsed < r.cfg.MinCreateInterval {
			r.mu.Unlock()
			r.metrics.CreateRejected("rate_limited")
			return nil, &terrors.RateLimitError{RetryAfter: r.cfg.MinCreateInterval - elapsed}
		}
	}

	if len(r.sessions) >= r.cfg.MaxSessions {
		r.mu.Unlock()
		r.metrics.CreateRejected("capacity")
		return nil, &terrors.CapacityError{Limit: r.cfg.MaxSessions}
	}

	// Accepted: move the watermark and reserve the slot before spawning
	r.lastCreate = now

	session := newSession(uuid.New().String(), req.WorkingDir, dims, r.cfg.HistorySize, r.metrics)
	r.sessions[session.ID] = session
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"session_id":  session.ID,
		"working_dir": req.WorkingDir,
		"cols":        dims.Cols,
		"rows":        dims.Rows,
	}).Info("Creating new session")

	shell := req.Shell
	if shell == "" {
		shell = r.cfg.Shell
	}

	proc, err := r.spawn(&PTYConfig{
		Shell:       shell,
		WorkingDir:  req.WorkingDir,
		Env:         req.Env,
		Dimensions:  dims,
		GracePeriod: r.cfg.KillGracePeriod,
	})
	if err != nil {
		// A failed spawn must not consume a concurrency slot
		r.mu.Lock()
		delete(r.sessions, session.ID)
		r.mu.Unlock()
		session.setState(types.SessionStateClosed)

		var spawnErr *terrors.SpawnError
		reason := string(terrors.SpawnReasonOther)
		if stderrors.As(err, &spawnErr) {
			reason = string(spawnErr.Reason)
		}
		r.metrics.SpawnFailed(reason)

		logrus.WithError(err).WithField("session_id", session.ID).Error("Failed to spawn PTY")
		return nil, err
	}

	session.attach(proc)
	r.metrics.SessionCreated()

	logrus.WithField("session_id", session.ID).Info("Session created successfully")
	return session, nil
}

// CloseSession tears a session down and removes it from the registry.
// Idempotent: closing an unknown or already-closed session is a no-op.
func (r *Registry) CloseSession(sessionID string) {
	r.mu.Lock()
	session, exists := r.sessions[sessionID]
	if exists {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if !exists {
		return
	}

	logrus.WithField("session_id", sessionID).Info("Closing session")
	session.close()
	r.metrics.SessionClosed()
}

// Get retrieves a session by id
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, exists := r.sessions[sessionID]
	return session, exists
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshots returns metadata views of every live session
func (r *Registry) Snapshots() []types.SessionSnapshot {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.mu.Unlock()

	snapshots := make([]types.SessionSnapshot, 0, len(sessions))
	for _, session := range sessions {
		snapshots = append(snapshots, session.Snapshot())
	}
	return snapshots
}

// Stats returns the registry summary for the stats endpoint
func (r *Registry) Stats() types.RegistryStats {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.mu.Unlock()

	now := time.Now()
	stats := types.RegistryStats{
		ActiveSessions: len(sessions),
		MaxSessions:    r.cfg.MaxSessions,
		Sessions:       make([]types.SessionInfo, 0, len(sessions)),
	}
	for _, session := range sessions {
		snap := session.Snapshot()
		stats.Sessions = append(stats.Sessions, types.SessionInfo{
			ID:          session.ID,
			AgeSeconds:  now.Sub(snap.CreatedAt).Seconds(),
			IdleSeconds: session.IdleFor(now).Seconds(),
		})
	}
	return stats
}

// sweepLoop periodically closes sessions idle past the configured timeout
func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.cfg.IdleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweepIdle()
		case <-r.stopChan:
			return
		}
	}
}

func (r *Registry) sweepIdle() {
	now := time.Now()

	r.mu.Lock()
	var idle []string
	for id, session := range r.sessions {
		if session.IdleFor(now) > r.cfg.IdleTimeout {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	for _, id := range idle {
		logrus.WithField("session_id", id).Info("Closing idle session")
		r.CloseSession(id)
	}
}

// Shutdown closes every live session and stops the sweeper
func (r *Registry) Shutdown() {
	r.stopOnce.Do(func() {
		close(r.stopChan)

		r.mu.Lock()
		ids := make([]string, 0, len(r.sessions))
		for id := range r.sessions {
			ids = append(ids, id)
		}
		r.mu.Unlock()

		logrus.WithField("session_count", len(ids)).Info("Shutting down session registry")

		for _, id := range ids {
			r.CloseSession(id)
		}
	})
}
