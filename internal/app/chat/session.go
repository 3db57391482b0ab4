package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"hallchat/internal/app/identity"
	"hallchat/internal/pkg/errs"
)

var (
	// ErrEmptyMessage is returned for blank submissions. Nothing is stored or sent.
	ErrEmptyMessage = errors.New("chat: empty message")

	// ErrMessageTooLong is returned when the text exceeds MaxContentBytes.
	ErrMessageTooLong = errors.New("chat: message too long")

	// ErrSessionClosed is returned for events on a disconnected session.
	ErrSessionClosed = errors.New("chat: session closed")

	// ErrDuplicateConnection is returned when a connection id is already live.
	ErrDuplicateConnection = errors.New("chat: duplicate connection id")

	// ErrShuttingDown is returned by Connect once Shutdown has started.
	ErrShuttingDown = errors.New("chat: shutting down")
)

// SessionState is the lifecycle stage of a Session.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateActive
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the server side of one connection. Its identity is fixed at connect.
type Session struct {
	manager *Manager
	conn    Connection

	mu    sync.Mutex
	state SessionState
}

// ID returns the connection id.
func (s *Session) ID() string { return s.conn.ID }

// Identity returns the identity the session speaks as.
func (s *Session) Identity() identity.Identity { return s.conn.Identity }

// Connection returns the registered connection record.
func (s *Session) Connection() Connection { return s.conn }

// State returns the current lifecycle stage.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) active() bool {
	return s.State() == StateActive
}

// SendMessage validates, stores and broadcasts one message.
//
// Blank text returns ErrEmptyMessage without any frame. Oversized text and store failures
// are reported to this connection with an error frame; the store failure is returned as
// a *StoreError. The state is only checked on entry, so a concurrent Disconnect does not
// abort a send that already started.
func (s *Session) SendMessage(ctx context.Context, p SendMessagePayload) error {
	if !s.active() {
		return ErrSessionClosed
	}

	text := strings.TrimSpace(p.Message)
	if text == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxContentBytes {
		s.manager.sendError(s.conn.ID, errs.NewError(errs.ErrMessageContentTooLong, MaxContentBytes))
		return ErrMessageTooLong
	}

	return s.manager.publish(ctx, s.conn, text, s.displayName(p.DisplayName))
}

// displayName picks the label for one message. Only guests may relabel themselves.
func (s *Session) displayName(supplied string) string {
	id := s.conn.Identity
	if !id.IsGuest() {
		return id.DisplayName
	}

	supplied = strings.TrimSpace(supplied)
	if supplied == "" {
		return id.DisplayName
	}
	if utf8.RuneCountInString(supplied) > MaxDisplayNameRunes {
		supplied = string([]rune(supplied)[:MaxDisplayNameRunes])
	}
	return supplied
}

// RequestHistory replays recent history to this connection.
func (s *Session) RequestHistory() error {
	if !s.active() {
		return ErrSessionClosed
	}

	s.manager.sendHistory(s.conn.ID)
	return nil
}

// Disconnect deregisters the connection and broadcasts the new count. Safe to call repeatedly.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	s.manager.leave(s.conn.ID)
}
