package ws

import (
	"sync"

	"github.com/sirupsen/logrus"

	terrors "github.com/piyushgupta53/termbridge/internal/errors"
	"github.com/piyushgupta53/termbridge/internal/monitoring"
	"github.com/piyushgupta53/termbridge/internal/terminal"
	"github.com/piyushgupta53/termbridge/internal/types"
)

// pendingOutputChunks caps the output buffered for a session whose owning
// connection has already gone away while the session is still closing
const pendingOutputChunks = 64

// Sender is the hub's view of one gateway connection
type Sender interface {
	ID() string
	Send(msg *types.Message)
	Close()
}

type inboundMessage struct {
	connID string
	msg    *types.Message
}

type createResult struct {
	connID  string
	session *terminal.Session
	err     error
}

// procEvent is one observation from a session's process: either an output
// chunk or, when exited is set, the final exit. Output and exit travel on a
// single channel so a session's exit can never overtake its output.
type procEvent struct {
	sessionID string
	data      []byte
	exited    bool
	exitCode  int
}

// Stats exposes the hub's map sizes for tests and the stats surface
type Stats struct {
	Connections       int
	ReverseMapEntries int
}

// Hub is the connection multiplexer: it maps each live connection to at most
// one session, routes inbound events to the right session, routes PTY output
// back to the owning connection, and is the only writer of the
// connection-to-session reverse map. Keeping that map in lock-step with the
// session's owner field is what prevents orphaned state across reconnect
// churn, so all mutation happens on the single Run loop.
type Hub struct {
	registry *terminal.Registry
	metrics  *monitoring.Collector

	register   chan Sender
	unregister chan string
	inbound    chan inboundMessage
	createDone chan createResult
	procEvents chan procEvent
	query      chan chan Stats

	stopChan chan struct{}
	stopOnce sync.Once
	doneChan chan struct{}

	// Loop-owned state, touched only inside Run
	conns           map[string]Sender
	socketToSession map[string]string
	pendingCreate   map[string]struct{}
	pendingOutput   map[string][][]byte
}

// NewHub creates a connection multiplexer over the given registry
func NewHub(registry *terminal.Registry, metrics *monitoring.Collector) *Hub {
	return &Hub{
		registry:        registry,
		metrics:         metrics,
		register:        make(chan Sender),
		unregister:      make(chan string),
		inbound:         make(chan inboundMessage),
		createDone:      make(chan createResult),
		procEvents:      make(chan procEvent, 64),
		query:           make(chan chan Stats),
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
		conns:           make(map[string]Sender),
		socketToSession: make(map[string]string),
		pendingCreate:   make(map[string]struct{}),
		pendingOutput:   make(map[string][][]byte),
	}
}

// Run drives the hub until Stop is called. All shared maps are owned by
// this loop.
func (h *Hub) Run() {
	logrus.Info("Starting connection multiplexer")
	defer close(h.doneChan)

	for {
		select {
		case conn := <-h.register:
			h.handleConnect(conn)

		case connID := <-h.unregister:
			h.handleDisconnect(connID)

		case in := <-h.inbound:
			h.handleMessage(in.connID, in.msg)

		case res := <-h.createDone:
			h.handleCreateDone(res)

		case ev := <-h.procEvents:
			if ev.exited {
				h.handleExit(ev)
			} else {
				h.handleOutput(ev)
			}

		case resp := <-h.query:
			resp <- Stats{
				Connections:       len(h.conns),
				ReverseMapEntries: len(h.socketToSession),
			}

		case <-h.stopChan:
			logrus.Info("Stopping connection multiplexer")
			h.shutdown()
			return
		}
	}
}

// Stop shuts the hub down. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
	<-h.doneChan
}

// OnConnect registers a new connection with no active session
func (h *Hub) OnConnect(conn Sender) {
	select {
	case h.register <- conn:
	case <-h.stopChan:
		conn.Close()
	}
}

// OnDisconnect removes a connection and tears down any session it owned
func (h *Hub) OnDisconnect(connID string) {
	select {
	case h.unregister <- connID:
	case <-h.stopChan:
	}
}

// OnMessage routes one inbound gateway message
func (h *Hub) OnMessage(connID string, msg *types.Message) {
	select {
	case h.inbound <- inboundMessage{connID: connID, msg: msg}:
	case <-h.stopChan:
	}
}

// QueryStats returns the hub's current map sizes
func (h *Hub) QueryStats() Stats {
	resp := make(chan Stats, 1)
	select {
	case h.query <- resp:
		return <-resp
	case <-h.stopChan:
		return Stats{}
	}
}

func (h *Hub) handleConnect(conn Sender) {
	h.conns[conn.ID()] = conn
	h.metrics.ConnectionOpened()

	logrus.WithFields(logrus.Fields{
		"connection_id":     conn.ID(),
		"total_connections": len(h.conns),
	}).Info("Connection registered")

	conn.Send(types.NewConnectedMessage())
}

// handleDisconnect performs the cleanup sequence: look up the reverse map,
// close the owned session if any, then delete the reverse-map entry
// unconditionally so stale entries never accumulate across reconnect churn.
func (h *Hub) handleDisconnect(connID string) {
	if sessionID, owned := h.socketToSession[connID]; owned {
		h.registry.CloseSession(sessionID)
	}
	delete(h.socketToSession, connID)
	delete(h.pendingCreate, connID)

	if conn, exists := h.conns[connID]; exists {
		delete(h.conns, connID)
		conn.Close()
		h.metrics.ConnectionClosed()
	}

	logrus.WithFields(logrus.Fields{
		"connection_id":     connID,
		"total_connections": len(h.conns),
	}).Info("Connection unregistered")
}

func (h *Hub) handleMessage(connID string, msg *types.Message) {
	switch msg.Type {
	case types.MessageTypeCreate:
		h.handleCreate(connID, msg)

	case types.MessageTypeInput:
		if session := h.ownedSession(connID, msg); session != nil {
			session.Write([]byte(msg.Data))
		}

	case types.MessageTypeResize:
		if session := h.ownedSession(connID, msg); session != nil {
			dims, ok := types.DimensionsFrom(msg.Cols, msg.Rows)
			if !ok {
				logrus.WithFields(logrus.Fields{
					"connection_id": connID,
					"cols":          msg.Cols,
					"rows":          msg.Rows,
				}).Warn("Ignoring resize with out-of-range dimensions")
				return
			}
			session.Resize(dims)
		}

	case types.MessageTypeKill:
		if session := h.ownedSession(connID, msg); session != nil {
			h.registry.CloseSession(session.ID)
		}

	case types.MessageTypePing:
		if conn, exists := h.conns[connID]; exists {
			conn.Send(types.NewPongMessage())
		}

	default:
		logrus.WithFields(logrus.Fields{
			"connection_id": connID,
			"message_type":  msg.Type,
		}).Warn("Dropping message of unhandled type")
	}
}

func (h *Hub) handleCreate(connID string, msg *types.Message) {
	// A connection holds at most one session. The in-flight marker covers
	// the window where a spawn is still running off-loop and the reverse
	// map has no entry yet; without it two overlapping creates would both
	// pass the ownership check and the second completion would overwrite
	// the first's reverse-map entry, orphaning a live session.
	if _, owns := h.socketToSession[connID]; owns {
		logrus.WithField("connection_id", connID).Warn("Dropping create from connection that already owns a session")
		return
	}
	if _, inFlight := h.pendingCreate[connID]; inFlight {
		logrus.WithField("connection_id", connID).Warn("Dropping create from connection with a create already in flight")
		return
	}
	h.pendingCreate[connID] = struct{}{}

	req := msg.CreateRequest()

	// The spawn can block on the OS, so it runs off the loop and its
	// completion comes back as a createDone event
	go func() {
		session, err := h.registry.CreateSession(req)
		select {
		case h.createDone <- createResult{connID: connID, session: session, err: err}:
		case <-h.stopChan:
			if session != nil {
				h.registry.CloseSession(session.ID)
			}
		}
	}()
}

func (h *Hub) handleCreateDone(res createResult) {
	delete(h.pendingCreate, res.connID)
	conn, connected := h.conns[res.connID]

	if res.err != nil {
		logrus.WithError(res.err).WithField("connection_id", res.connID).Warn("Session creation failed")
		if connected {
			conn.Send(types.NewCreateErrorMessage(string(terrors.CodeOf(res.err)), terrors.UserMessage(res.err)))
		}
		return
	}

	session := res.session

	// The PTY is live from here on, so its output always needs draining
	go h.pumpSession(session)

	if !connected {
		// Owner disconnected while the spawn was in flight
		logrus.WithFields(logrus.Fields{
			"connection_id": res.connID,
			"session_id":    session.ID,
		}).Info("Owner gone before spawn completed, closing session")
		h.registry.CloseSession(session.ID)
		return
	}

	// Both sides of the owner pairing are updated together
	session.SetOwner(res.connID)
	h.socketToSession[res.connID] = session.ID

	conn.Send(types.NewCreatedMessage(session.ID))
}

// ownedSession resolves the session a connection owns, treating events for
// unknown or unowned sessions as protocol violations: dropped and logged,
// never fatal to the connection.
func (h *Hub) ownedSession(connID string, msg *types.Message) *terminal.Session {
	sessionID, owned := h.socketToSession[connID]
	if !owned || (msg.SessionID != "" && msg.SessionID != sessionID) {
		logrus.WithFields(logrus.Fields{
			"connection_id": connID,
			"session_id":    msg.SessionID,
			"message_type":  msg.Type,
		}).Warn("Protocol violation: event for session not owned by connection")
		return nil
	}

	session, exists := h.registry.Get(sessionID)
	if !exists {
		logrus.WithFields(logrus.Fields{
			"connection_id": connID,
			"session_id":    sessionID,
		}).Debug("Dropping event for session no longer in registry")
		return nil
	}

	return session
}

func (h *Hub) handleOutput(ev procEvent) {
	session, exists := h.registry.Get(ev.sessionID)
	if !exists {
		// Session already fully closed, discard
		delete(h.pendingOutput, ev.sessionID)
		return
	}

	owner := session.Owner()
	conn, connected := h.conns[owner]
	if !connected {
		// Owner raced away while the session is still closing; hold a
		// bounded amount until the exit event discards it
		pending := h.pendingOutput[ev.sessionID]
		if len(pending) < pendingOutputChunks {
			h.pendingOutput[ev.sessionID] = append(pending, ev.data)
		}
		return
	}

	conn.Send(types.NewOutputMessage(ev.sessionID, string(ev.data)))
	h.metrics.OutputBytes(len(ev.data))
}

func (h *Hub) handleExit(ev procEvent) {
	logrus.WithFields(logrus.Fields{
		"session_id": ev.sessionID,
		"exit_code":  ev.exitCode,
	}).Info("Session process exited")

	delete(h.pendingOutput, ev.sessionID)
	h.registry.CloseSession(ev.sessionID)

	for connID, sessionID := range h.socketToSession {
		if sessionID != ev.sessionID {
			continue
		}
		delete(h.socketToSession, connID)
		if conn, exists := h.conns[connID]; exists {
			conn.Send(types.NewExitMessage(ev.sessionID, ev.exitCode))
		}
	}
}

// pumpSession forwards a session's PTY output into the hub loop, preserving
// the order the PTY produced it, and reports the final exit event
func (h *Hub) pumpSession(session *terminal.Session) {
	proc := session.Proc()

	for chunk := range proc.Output() {
		session.Touch()
		select {
		case h.procEvents <- procEvent{sessionID: session.ID, data: chunk}:
		case <-h.stopChan:
			// Keep draining so the PTY reader can reach EOF
		}
	}

	<-proc.Done()

	select {
	case h.procEvents <- procEvent{sessionID: session.ID, exited: true, exitCode: proc.ExitCode()}:
	case <-h.stopChan:
	}
}

func (h *Hub) shutdown() {
	for connID, conn := range h.conns {
		conn.Close()
		delete(h.conns, connID)
	}
	h.socketToSession = make(map[string]string)
	h.pendingCreate = make(map[string]struct{})
	h.pendingOutput = make(map[string][][]byte)
}
