/*
Package chat contains the core logic of the hall.

This file defines the Manager, which wires connection lifecycle events to the identity
resolver, the presence registry, the message store and the broadcast bus.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hallchat/internal/app/identity"
	"hallchat/internal/pkg/errs"
	"hallchat/internal/pkg/logx"
)

// DefaultReplayLimit is the number of messages replayed on connect and on request.
const DefaultReplayLimit = 100

// IdentityResolver maps a session to the identity it speaks as.
type IdentityResolver interface {
	Resolve(ctx context.Context, sc identity.SessionContext, sourceAddress string) identity.Identity
}

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	// ReplayLimit is the history length sent on connect and on request_history.
	ReplayLimit int

	// ExposeSourceAddress includes senders' addresses in message frames.
	ExposeSourceAddress bool

	// Bus replaces the Fanout over the manager's registry.
	Bus Bus

	// Now is the message clock.
	Now func() time.Time

	// Location is the time zone of Message.Timestamp. Defaults to time.Local.
	Location *time.Location
}

// Manager coordinates every session of the hall.
type Manager struct {
	resolver IdentityResolver
	store    *Store
	registry *Registry
	bus      Bus

	replayLimit   int
	exposeAddress bool
	now           func() time.Time
	location      *time.Location

	// presenceMu orders registry changes together with their user_count broadcasts.
	presenceMu   sync.Mutex
	shuttingDown bool

	// feedMu orders message creation, append and broadcast. lastStamp is the CreatedAt of
	// the newest stored message.
	feedMu    sync.Mutex
	lastStamp time.Time

	logger zerolog.Logger
}

// NewManager constructs a Manager over store.
func NewManager(resolver IdentityResolver, store *Store, opts Options) *Manager {
	if opts.ReplayLimit <= 0 {
		opts.ReplayLimit = DefaultReplayLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	registry := NewRegistry()
	bus := opts.Bus
	if bus == nil {
		bus = NewFanout(registry)
	}

	m := &Manager{
		resolver:      resolver,
		store:         store,
		registry:      registry,
		bus:           bus,
		replayLimit:   opts.ReplayLimit,
		exposeAddress: opts.ExposeSourceAddress,
		now:           opts.Now,
		location:      opts.Location,
		logger:        logx.Component("Manager"),
	}

	if recent := store.RecentHistory(1); len(recent) == 1 {
		m.lastStamp = recent[0].CreatedAt
	}

	return m
}

// Registry exposes the presence registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// OnlineCount returns the number of live connections.
func (m *Manager) OnlineCount() int {
	return m.registry.Count()
}

// History returns up to limit recent messages in wire form. Non-positive or oversized
// limits are clamped to the replay limit.
func (m *Manager) History(limit int) []MessagePayload {
	if limit <= 0 || limit > m.replayLimit {
		limit = m.replayLimit
	}
	return HistoryPayload(m.store.RecentHistory(limit), m.exposeAddress)
}

// Snapshot returns every cached message in wire form.
func (m *Manager) Snapshot() []MessagePayload {
	return HistoryPayload(m.store.RecentHistory(m.store.Capacity()), m.exposeAddress)
}

// Connect resolves the session's identity and connects connID under it.
func (m *Manager) Connect(ctx context.Context, connID string, sc identity.SessionContext, sourceAddress string, out Outbox) (*Session, error) {
	return m.ConnectAs(connID, m.Resolve(ctx, sc, sourceAddress), sourceAddress, out)
}

// Resolve returns the identity a session connects as. It may mark sc as a guest session.
func (m *Manager) Resolve(ctx context.Context, sc identity.SessionContext, sourceAddress string) identity.Identity {
	return m.resolver.Resolve(ctx, sc, identity.NormalizeAddress(sourceAddress))
}

// ConnectAs registers connID with out under an already resolved identity, broadcasts the new
// user count and replays recent history to out.
//
// The feed lock is held throughout, so a message is either part of the replay or
// delivered after it, never both.
func (m *Manager) ConnectAs(connID string, id identity.Identity, sourceAddress string, out Outbox) (*Session, error) {
	sess := &Session{
		manager: m,
		conn: Connection{
			ID:            connID,
			Identity:      id,
			SourceAddress: identity.NormalizeAddress(sourceAddress),
		},
		state: StateConnecting,
	}

	m.feedMu.Lock()
	defer m.feedMu.Unlock()

	if err := m.join(sess.conn, out); err != nil {
		sess.state = StateDisconnected
		return nil, err
	}

	m.sendHistory(connID)

	sess.mu.Lock()
	sess.state = StateActive
	sess.mu.Unlock()

	m.logger.Info().
		Str("conn_id", connID).
		Str("user_id", id.ID).
		Str("kind", string(id.Kind)).
		Msg("Session connected")

	return sess, nil
}

func (m *Manager) join(conn Connection, out Outbox) error {
	m.presenceMu.Lock()
	defer m.presenceMu.Unlock()

	if m.shuttingDown {
		return ErrShuttingDown
	}

	count, err := m.registry.Register(conn, out)
	if err != nil {
		m.logger.Warn().Err(err).Str("conn_id", conn.ID).Msg("Rejected connection")
		return err
	}

	m.bus.Broadcast(EventUserCount, UserCountPayload{Count: count})
	return nil
}

func (m *Manager) leave(connID string) {
	m.presenceMu.Lock()
	defer m.presenceMu.Unlock()

	count, removed := m.registry.Deregister(connID)
	if !removed {
		return
	}

	m.bus.Broadcast(EventUserCount, UserCountPayload{Count: count})
	m.logger.Info().Str("conn_id", connID).Int("online", count).Msg("Session disconnected")
}

func (m *Manager) sendHistory(connID string) {
	m.bus.SendTo(connID, EventChatHistory, HistoryPayload(m.store.RecentHistory(m.replayLimit), m.exposeAddress))
}

func (m *Manager) sendError(connID string, customErr *errs.CustomError) {
	m.bus.SendTo(connID, EventError, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
}

// publish stores a message from conn and broadcasts it once the append succeeded.
func (m *Manager) publish(ctx context.Context, conn Connection, text, displayName string) error {
	m.feedMu.Lock()
	defer m.feedMu.Unlock()

	createdAt := m.now().UTC().Truncate(time.Microsecond)
	if createdAt.Before(m.lastStamp) {
		createdAt = m.lastStamp
	}

	msg := Message{
		UserID:        conn.Identity.ID,
		Username:      conn.Identity.Username,
		DisplayName:   displayName,
		Text:          text,
		Timestamp:     createdAt.In(m.location).Format(TimestampLayout),
		SourceAddress: conn.SourceAddress,
		IsGuest:       conn.Identity.IsGuest(),
		CreatedAt:     createdAt,
	}

	if err := m.store.Append(ctx, &msg); err != nil {
		m.logger.Error().Err(err).
			Str("conn_id", conn.ID).
			Str("user_id", conn.Identity.ID).
			Msg("Message not stored, dropping it from the feed")
		m.sendError(conn.ID, errs.NewError(errs.ErrMessageNotDelivered))
		return err
	}
	m.lastStamp = createdAt

	m.bus.Broadcast(EventNewMessage, msg.Payload(m.exposeAddress))
	return nil
}

// Shutdown stops accepting connections and closes every live outbox. Sessions
// disconnect as their transports wind down.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down chat sessions...")

	m.presenceMu.Lock()
	m.shuttingDown = true
	m.presenceMu.Unlock()

	outboxes := m.registry.outboxes()
	for _, out := range outboxes {
		out.Close()
	}

	m.logger.Info().Int("closed", len(outboxes)).Msg("Chat shutdown complete.")
}
