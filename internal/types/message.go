package types

import (
	"encoding/json"
	"time"
)

// MessageType represents the kind of a gateway message
type MessageType string

const (
	// Client to server messages
	MessageTypeCreate MessageType = "create" // Request a new terminal session
	MessageTypeInput  MessageType = "input"  // Terminal input from client
	MessageTypeResize MessageType = "resize" // Terminal resize request
	MessageTypeKill   MessageType = "kill"   // Terminate a session
	MessageTypePing   MessageType = "ping"   // Ping for connection health

	// Server to client messages
	MessageTypeCreated     MessageType = "created"     // Session creation succeeded
	MessageTypeCreateError MessageType = "createError" // Session creation rejected or failed
	MessageTypeOutput      MessageType = "output"      // Terminal output to client
	MessageTypeExit        MessageType = "exit"        // Session's process exited
	MessageTypePong        MessageType = "pong"        // Pong response to ping
	MessageTypeConnected   MessageType = "connected"   // Connection confirmation
)

// Message represents a message sent over the gateway in either direction
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      string      `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`

	// For create messages
	WorkingDir string `json:"working_dir,omitempty"`
	Shell      string `json:"shell,omitempty"`

	// For create and resize messages
	Cols int `json:"cols,omitempty"`
	Rows int `json:"rows,omitempty"`

	// For exit messages
	ExitCode *int `json:"exit_code,omitempty"`

	// For createError messages
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewCreatedMessage creates a session creation confirmation
func NewCreatedMessage(sessionID string) *Message {
	return &Message{
		Type:      MessageTypeCreated,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}
}

// NewCreateErrorMessage creates a session creation failure message
func NewCreateErrorMessage(code, errMsg string) *Message {
	return &Message{
		Type:      MessageTypeCreateError,
		Code:      code,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
}

// NewOutputMessage creates a terminal output message
func NewOutputMessage(sessionID, data string) *Message {
	return &Message{
		Type:      MessageTypeOutput,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewExitMessage creates a session exit message
func NewExitMessage(sessionID string, exitCode int) *Message {
	return &Message{
		Type:      MessageTypeExit,
		SessionID: sessionID,
		ExitCode:  &exitCode,
		Timestamp: time.Now(),
	}
}

// NewConnectedMessage creates a connection confirmation message
func NewConnectedMessage() *Message {
	return &Message{
		Type:      MessageTypeConnected,
		Timestamp: time.Now(),
	}
}

// NewPongMessage creates a pong response
func NewPongMessage() *Message {
	return &Message{
		Type:      MessageTypePong,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON
func FromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// IsClientMessage reports whether the type is one a client may send
func (m *Message) IsClientMessage() bool {
	switch m.Type {
	case MessageTypeCreate, MessageTypeInput, MessageTypeResize, MessageTypeKill, MessageTypePing:
		return true
	default:
		return false
	}
}

// CreateRequest builds a session create request from a create message
func (m *Message) CreateRequest() *CreateRequest {
	return &CreateRequest{
		WorkingDir: m.WorkingDir,
		Shell:      m.Shell,
		Cols:       m.Cols,
		Rows:       m.Rows,
	}
}
