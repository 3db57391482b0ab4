package identity

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"hallchat/internal/pkg/auth/jwt"
	"hallchat/internal/pkg/logx"
)

// DefaultLookupTimeout bounds the directory lookup of a registered identity.
const DefaultLookupTimeout = 3 * time.Second

// TokenVerifier validates a raw session token and returns the user id it was issued for.
type TokenVerifier func(token string) (userID string, err error)

// JWTVerifier accepts HS256 session tokens issued by the auth endpoints.
func JWTVerifier(secretKey string) TokenVerifier {
	return func(token string) (string, error) {
		payload, err := jwt.ParseToken(token, secretKey)
		if err != nil {
			return "", err
		}
		if payload.UserType != jwt.UserTypeRegistered || payload.ID == "" {
			return "", errors.New("token is not a registered session")
		}
		return payload.ID, nil
	}
}

// GuestMarkers seals guest ids into the markers cached on a session and opens them again.
type GuestMarkers interface {
	Issue(guestID string) (string, error)
	Open(marker string) (guestID string, err error)
}

type jwtGuestMarkers struct {
	secretKey string
}

// JWTGuestMarkers signs guest ids as HS256 tokens of the guest user type.
func JWTGuestMarkers(secretKey string) GuestMarkers {
	return jwtGuestMarkers{secretKey: secretKey}
}

func (m jwtGuestMarkers) Issue(guestID string) (string, error) {
	return jwt.GenerateToken(&jwt.Payload{ID: guestID, UserType: jwt.UserTypeGuest}, m.secretKey, jwt.SessionExpiration)
}

func (m jwtGuestMarkers) Open(marker string) (string, error) {
	payload, err := jwt.ParseToken(marker, m.secretKey)
	if err != nil {
		return "", err
	}
	if payload.UserType != jwt.UserTypeGuest || payload.ID == "" {
		return "", errors.New("token is not a guest marker")
	}
	return payload.ID, nil
}

// Resolver maps a session to an Identity. It never fails.
type Resolver struct {
	directory     Directory
	verify        TokenVerifier
	markers       GuestMarkers
	lookupTimeout time.Duration
	logger        zerolog.Logger
}

// NewResolver builds a Resolver. A nil verifier disables registered identities.
// With nil markers the session is marked with the bare guest id.
func NewResolver(directory Directory, verify TokenVerifier, markers GuestMarkers) *Resolver {
	return &Resolver{
		directory:     directory,
		verify:        verify,
		markers:       markers,
		lookupTimeout: DefaultLookupTimeout,
		logger:        logx.Component("IdentityResolver"),
	}
}

// Resolve returns the registered identity behind a valid session token, or the guest identity
// for sourceAddress. A guest marker is honoured only when it names that same guest, so a
// session cannot speak as another address.
func (r *Resolver) Resolve(ctx context.Context, sc SessionContext, sourceAddress string) Identity {
	if id, ok := r.registered(ctx, sc); ok {
		return id
	}

	guest := Guest(sourceAddress)

	if marker, ok := sc.GuestMarker(); ok {
		if r.accepts(marker, guest.ID) {
			return guest
		}
		r.logger.Info().Str("guest_id", guest.ID).Msg("Ignoring guest marker issued for another guest")
	}

	r.mark(sc, guest.ID)
	return guest
}

func (r *Resolver) accepts(marker, guestID string) bool {
	id := marker
	if r.markers != nil {
		opened, err := r.markers.Open(marker)
		if err != nil {
			return false
		}
		id = opened
	}
	return id == guestID
}

func (r *Resolver) mark(sc SessionContext, guestID string) {
	marker := guestID
	if r.markers != nil {
		issued, err := r.markers.Issue(guestID)
		if err != nil {
			r.logger.Error().Err(err).Str("guest_id", guestID).Msg("Failed to issue guest marker")
			return
		}
		marker = issued
	}
	sc.MarkGuest(marker)
}

func (r *Resolver) registered(ctx context.Context, sc SessionContext) (Identity, bool) {
	token := sc.RegisteredToken()
	if token == "" || r.verify == nil || r.directory == nil {
		return Identity{}, false
	}

	userID, err := r.verify(token)
	if err != nil {
		r.logger.Info().Err(err).Msg("Session token rejected, falling back to guest")
		return Identity{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	id, err := r.directory.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.Warn().Str("user_id", userID).Msg("Token refers to unknown user, falling back to guest")
		} else {
			r.logger.Error().Err(err).Str("user_id", userID).Msg("User lookup failed, falling back to guest")
		}
		return Identity{}, false
	}

	return id, true
}
