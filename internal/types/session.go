package types

import (
	"math"
	"time"
)

// SessionState represents the lifecycle state of a terminal session
type SessionState string

const (
	// SessionStateCreating indicates a registry slot is reserved and the PTY is being spawned
	SessionStateCreating SessionState = "creating"
	// SessionStateActive indicates the PTY is live and accepting input
	SessionStateActive SessionState = "active"
	// SessionStateClosing indicates the PTY has been asked to terminate
	SessionStateClosing SessionState = "closing"
	// SessionStateClosed is terminal; all resources are released
	SessionStateClosed SessionState = "closed"
)

// IsTerminal returns true once the session can never accept input again
func (s SessionState) IsTerminal() bool {
	return s == SessionStateClosed
}

// Dimensions holds the terminal grid size
type Dimensions struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// Valid reports whether both dimensions are positive
func (d Dimensions) Valid() bool {
	return d.Cols > 0 && d.Rows > 0
}

// DimensionsFrom converts client-supplied integer dimensions, reporting
// whether both fit the PTY's range. Negative or oversized values must be
// rejected here rather than truncated: a bare uint16 conversion would turn
// -1 into 65535.
func DimensionsFrom(cols, rows int) (Dimensions, bool) {
	if cols <= 0 || cols > math.MaxUint16 || rows <= 0 || rows > math.MaxUint16 {
		return Dimensions{}, false
	}
	return Dimensions{Cols: uint16(cols), Rows: uint16(rows)}, true
}

// CreateRequest represents a request to create a new terminal session
type CreateRequest struct {
	WorkingDir string            `json:"working_dir"`
	Shell      string            `json:"shell,omitempty"`
	Cols       int               `json:"cols"`
	Rows       int               `json:"rows"`
	Env        map[string]string `json:"env,omitempty"`
}

// SessionSnapshot is a read-only metadata view of a session. It is what the
// REST checkpoint surface sees; it never carries a live PTY handle.
type SessionSnapshot struct {
	ID             string       `json:"id"`
	State          SessionState `json:"state"`
	OwnerConnID    string       `json:"owner_connection_id,omitempty"`
	WorkingDir     string       `json:"working_dir"`
	Dimensions     Dimensions   `json:"dimensions"`
	CreatedAt      time.Time    `json:"created_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
	CommandHistory []string     `json:"command_history,omitempty"`
}

// SessionListResponse represents the response for listing sessions
type SessionListResponse struct {
	Sessions []SessionSnapshot `json:"sessions"`
	Count    int               `json:"count"`
}

// RegistryStats summarizes the registry for the stats endpoint
type RegistryStats struct {
	ActiveSessions int           `json:"active_sessions"`
	MaxSessions    int           `json:"max_sessions"`
	Sessions       []SessionInfo `json:"sessions"`
}

// SessionInfo holds per-session age and idle figures
type SessionInfo struct {
	ID          string  `json:"id"`
	AgeSeconds  float64 `json:"age_seconds"`
	IdleSeconds float64 `json:"idle_seconds"`
}
