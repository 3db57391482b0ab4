/*
Package chat contains the core logic of the hall: presence, the message log, fan-out of
events to connected clients, and the per-connection session state machine.

This file defines the Message record and the JSON frames exchanged with clients.
*/
package chat

import (
	"encoding/json"
	"time"
)

// Event names on the wire.
const (
	// client -> server
	EventSendMessage    = "send_message"
	EventRequestHistory = "request_history"

	// server -> client
	EventUserCount   = "user_count"
	EventNewMessage  = "new_message"
	EventChatHistory = "chat_history"
	EventError       = "error"
)

const (
	// TimestampLayout formats Message.Timestamp, e.g. "03-14 09:26".
	TimestampLayout = "01-02 15:04"

	// MaxContentBytes is the largest accepted message text, after trimming.
	MaxContentBytes = 5000

	// MaxDisplayNameRunes bounds a guest's per-message display name.
	MaxDisplayNameRunes = 32
)

// Message is one entry of the hall's log. It is never modified after Append.
type Message struct {
	// ID is assigned by the repository on append.
	ID int64 `json:"id"`

	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`

	// Timestamp is the display form of CreatedAt in the server's local time zone.
	Timestamp string `json:"timestamp"`

	SourceAddress string `json:"source_address"`
	IsGuest       bool   `json:"is_guest"`

	// CreatedAt orders the log. UTC, microsecond precision, non-decreasing in append order.
	CreatedAt time.Time `json:"created_at"`
}

// MessagePayload is the client-facing shape of a message in new_message and chat_history.
type MessagePayload struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name"`
	Message       string `json:"message"`
	Timestamp     string `json:"timestamp"`
	SourceAddress string `json:"source_address,omitempty"`
	IsGuest       bool   `json:"is_guest"`
}

// Payload converts m for the wire. The source address is only included when exposeAddress is set.
func (m Message) Payload(exposeAddress bool) MessagePayload {
	p := MessagePayload{
		UserID:      m.UserID,
		Username:    m.Username,
		DisplayName: m.DisplayName,
		Message:     m.Text,
		Timestamp:   m.Timestamp,
		IsGuest:     m.IsGuest,
	}
	if exposeAddress {
		p.SourceAddress = m.SourceAddress
	}
	return p
}

// HistoryPayload converts msgs for a chat_history frame. Never nil, so it encodes as [].
func HistoryPayload(msgs []Message, exposeAddress bool) []MessagePayload {
	out := make([]MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Payload(exposeAddress))
	}
	return out
}

// UserCountPayload is the data of a user_count frame.
type UserCountPayload struct {
	Count int `json:"count"`
}

// ErrorPayload is the data of an error frame.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SendMessagePayload is the data of an inbound send_message frame.
type SendMessagePayload struct {
	DisplayName string `json:"display_name,omitempty"`
	Message     string `json:"message"`
}

// Frame is the envelope of every WebSocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals an outbound frame.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
