/*
Package chat contains the core logic of the hall.

This file defines the Client, the WebSocket side of a session. It owns the transport,
runs the read and write loops, and implements Outbox for the broadcast bus.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hallchat/internal/pkg/errs"
	"hallchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 16 << 10

	// SendBufferSize is the number of frames queued per client before it is dropped.
	SendBufferSize = 256

	// messages per second (and burst) a single connection may send.
	messageRate  = 2
	messageBurst = 5
)

// Client is an active WebSocket connection.
type Client struct {
	id string

	// underlying WebSocket connection object, set by Attach after the upgrade.
	conn *websocket.Conn

	session *Session

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// mu guards closed and the fields set by Attach; send is only written or closed while holding it.
	mu     sync.Mutex
	closed bool

	// limits send_message frames from this connection.
	limiter *rate.Limiter

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient returns a Client for connID. Frames may be queued before the transport is attached.
func NewClient(connID string) *Client {
	return &Client{
		id:      connID,
		send:    make(chan []byte, SendBufferSize),
		limiter: rate.NewLimiter(messageRate, messageBurst),
		logger:  logx.Logger().With().Str("conn_id", connID).Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Attach binds the upgraded transport and the session created for it.
// Safe to call while broadcasts are enqueueing frames.
func (c *Client) Attach(conn *websocket.Conn, session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn = conn
	c.session = session
	c.logger = c.logger.With().Str("user_id", session.Identity().ID).Logger()
}

// Enqueue queues frame for the write loop. A client whose buffer is full is considered
// stalled and is closed.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, closing slow client")
		c.closed = true
		close(c.send)
		return false
	}
}

// Close stops the write loop, which then closes the transport.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads frames until the connection fails, then disconnects the session.
// ctx bounds the message store writes triggered by this connection.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (Client close/going away)")
			}
			break
		}

		c.processInboundFrame(ctx, frameBytes)
	}
}

// cleanupOnDisconnect runs when ReadPump exits.
func (c *Client) cleanupOnDisconnect() {
	c.session.Disconnect()
	c.Close()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundFrame(ctx context.Context, frameBytes []byte) {
	var frame Frame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		c.logger.Warn().Err(err).Int("frame_len", len(frameBytes)).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch frame.Event {
	case EventSendMessage:
		c.handleSendMessage(ctx, frame.Data)

	case EventRequestHistory:
		if err := c.session.RequestHistory(); err != nil {
			c.logger.Debug().Err(err).Msg("History request on closed session")
		}

	default:
		c.logger.Warn().Str("event", frame.Event).Msg("Client sent unsupported event")
	}
}

func (c *Client) handleSendMessage(ctx context.Context, data json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid send_message payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if !c.limiter.Allow() {
		c.SendError(errs.NewError(errs.ErrMessageRateLimited))
		return
	}

	// Store failures and oversized text are reported to the client by the session.
	if err := c.session.SendMessage(ctx, payload); errors.Is(err, ErrSessionClosed) {
		c.logger.Debug().Msg("send_message on closed session")
	}
}

// SendError queues an error frame for this client only.
func (c *Client) SendError(customErr *errs.CustomError) {
	frame, err := EncodeFrame(EventError, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build error frame")
		return
	}

	if !c.Enqueue(frame) {
		c.logger.Debug().Int("code", customErr.Code).Msg("Error frame dropped")
	}
}

// WritePump writes queued frames and periodic pings until the send channel is closed
// or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame returns false when the loop should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
