/*
Package identity resolves a connection to the chat identity it speaks as.

Registered identities come from the identity provider (the user service); everything else
falls back to a guest identity derived from the connection's network address.
*/
package identity

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Kind distinguishes registered users from address-derived guests.
type Kind string

const (
	KindGuest      Kind = "guest"
	KindRegistered Kind = "registered"
)

const (
	// GuestIDPrefix prefixes every guest id; the remainder is the source address.
	GuestIDPrefix = "guest-"

	// GuestNamePrefix prefixes the display name of a guest.
	GuestNamePrefix = "游客-"

	// UnknownAddress stands in for connections without a usable remote address.
	UnknownAddress = "unknown"
)

// ErrNotFound is returned by a Directory when no registered user has the requested id.
var ErrNotFound = errors.New("identity: user not found")

// Identity is the name a connection speaks under. It is fixed when the connection registers.
type Identity struct {
	Kind        Kind   `json:"kind"`
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// IsGuest reports whether the identity was derived from an address.
func (i Identity) IsGuest() bool {
	return i.Kind != KindRegistered
}

// Registered builds the identity of a registered user. The display name is the username.
func Registered(id, username string) Identity {
	return Identity{
		Kind:        KindRegistered,
		ID:          id,
		Username:    username,
		DisplayName: username,
	}
}

// Guest builds the guest identity for a source address.
func Guest(address string) Identity {
	address = NormalizeAddress(address)
	name := GuestNamePrefix + address

	return Identity{
		Kind:        KindGuest,
		ID:          GuestIDPrefix + address,
		Username:    name,
		DisplayName: name,
	}
}

// NormalizeAddress strips the port from a remote address. Empty input becomes "unknown".
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if host, _, err := net.SplitHostPort(address); err == nil {
		address = host
	}
	address = strings.Trim(address, "[]")

	if address == "" {
		return UnknownAddress
	}
	return address
}

// SessionContext is the per-session state the resolver reads and annotates.
// Over WebSocket it is backed by the upgrade request's cookies and response headers.
type SessionContext interface {
	// RegisteredToken returns the raw session token, or "" when the session has none.
	RegisteredToken() string

	// GuestMarker returns the guest marker cached on this session, if any.
	// The value comes from the client and is untrusted.
	GuestMarker() (string, bool)

	// MarkGuest caches a guest marker so later resolutions in this session agree.
	MarkGuest(marker string)
}

// Directory looks registered users up by id.
type Directory interface {
	Lookup(ctx context.Context, id string) (Identity, error)
}

// Provider is the credential store behind registration and login.
type Provider interface {
	Directory

	// Verify checks a username/password pair.
	Verify(ctx context.Context, username, password string) (Identity, error)

	// Register creates an account.
	Register(ctx context.Context, username, password string) (Identity, error)
}

// MemorySession is an in-process SessionContext.
type MemorySession struct {
	Token  string
	Marker string
}

func (s *MemorySession) RegisteredToken() string { return s.Token }

func (s *MemorySession) GuestMarker() (string, bool) { return s.Marker, s.Marker != "" }

func (s *MemorySession) MarkGuest(marker string) { s.Marker = marker }
