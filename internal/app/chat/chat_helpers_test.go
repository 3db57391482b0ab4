package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"hallchat/internal/app/identity"
	"hallchat/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.InitWriter(io.Discard, zerolog.Disabled)
	os.Exit(m.Run())
}

// recordingOutbox captures frames the bus enqueues for one connection.
type recordingOutbox struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
	refuse bool
}

func (o *recordingOutbox) Enqueue(b []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.refuse {
		return false
	}

	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		panic(err)
	}
	o.frames = append(o.frames, f)
	return true
}

func (o *recordingOutbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

func (o *recordingOutbox) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *recordingOutbox) events() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]string, 0, len(o.frames))
	for _, f := range o.frames {
		out = append(out, f.Event)
	}
	return out
}

// last decodes the data of the newest frame with the given event into dst.
func (o *recordingOutbox) last(event string, dst any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := len(o.frames) - 1; i >= 0; i-- {
		if o.frames[i].Event == event {
			if err := json.Unmarshal(o.frames[i].Data, dst); err != nil {
				panic(err)
			}
			return true
		}
	}
	return false
}

func (o *recordingOutbox) count(event string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for _, f := range o.frames {
		if f.Event == event {
			n++
		}
	}
	return n
}

func (o *recordingOutbox) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames = nil
}

// recordedEvent is one call on a recordingBus. To is empty for broadcasts.
type recordedEvent struct {
	To      string
	Event   string
	Payload any
}

type recordingBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBus) Broadcast(event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Event: event, Payload: payload})
}

func (b *recordingBus) SendTo(connID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{To: connID, Event: event, Payload: payload})
}

func (b *recordingBus) snapshot() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedEvent(nil), b.events...)
}

func (b *recordingBus) broadcasts(event string) []any {
	var out []any
	for _, e := range b.snapshot() {
		if e.To == "" && e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

// stubRepository fails on demand and otherwise behaves like MemoryRepository.
type stubRepository struct {
	MemoryRepository

	mu        sync.Mutex
	appendErr error
	recentErr error
	block     bool
}

func (r *stubRepository) failAppends(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendErr = err
}

func (r *stubRepository) Append(ctx context.Context, msg *Message) error {
	r.mu.Lock()
	appendErr, block := r.appendErr, r.block
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if appendErr != nil {
		return appendErr
	}
	return r.MemoryRepository.Append(ctx, msg)
}

func (r *stubRepository) Recent(ctx context.Context, limit int) ([]Message, error) {
	if r.recentErr != nil {
		return nil, r.recentErr
	}
	return r.MemoryRepository.Recent(ctx, limit)
}

var errDiskFull = errors.New("disk full")

// guestResolver resolves every session to the guest identity of its address.
var guestResolver = identity.NewResolver(nil, nil, nil)

// fixedResolver resolves every session to the same identity.
type fixedResolver identity.Identity

func (f fixedResolver) Resolve(context.Context, identity.SessionContext, string) identity.Identity {
	return identity.Identity(f)
}
