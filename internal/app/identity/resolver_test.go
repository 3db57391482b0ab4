package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hallchat/internal/pkg/auth/jwt"
)

const testSecret = "resolver-secret"

type directoryFunc func(ctx context.Context, id string) (Identity, error)

func (f directoryFunc) Lookup(ctx context.Context, id string) (Identity, error) { return f(ctx, id) }

func staticDirectory(users ...Identity) Directory {
	return directoryFunc(func(_ context.Context, id string) (Identity, error) {
		for _, u := range users {
			if u.ID == id {
				return u, nil
			}
		}
		return Identity{}, ErrNotFound
	})
}

func issue(t *testing.T, id string) string {
	t.Helper()
	token, err := jwt.GenerateToken(&jwt.Payload{ID: id, Username: "alice", UserType: jwt.UserTypeRegistered}, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestResolveGuest(t *testing.T) {
	r := NewResolver(staticDirectory(), JWTVerifier(testSecret), nil)
	sc := &MemorySession{}

	id := r.Resolve(context.Background(), sc, "10.0.0.7:51234")

	assert.Equal(t, Identity{
		Kind:        KindGuest,
		ID:          "guest-10.0.0.7",
		Username:    "游客-10.0.0.7",
		DisplayName: "游客-10.0.0.7",
	}, id)
	assert.True(t, id.IsGuest())
	assert.Equal(t, "guest-10.0.0.7", sc.Marker)
}

func TestResolveGuestStableWithinSession(t *testing.T) {
	r := NewResolver(nil, nil, JWTGuestMarkers(testSecret))
	sc := &MemorySession{}

	first := r.Resolve(context.Background(), sc, "10.0.0.7:1")
	marker := sc.Marker
	require.NotEmpty(t, marker)

	second := r.Resolve(context.Background(), sc, "10.0.0.7:2")
	assert.Equal(t, first, second)
	assert.Equal(t, marker, sc.Marker, "an accepted marker is not reissued")

	// Two sessions from the same address agree as well.
	other := r.Resolve(context.Background(), &MemorySession{}, "10.0.0.7:9999")
	assert.Equal(t, first, other)
}

func TestResolveGuestMarkerIsSigned(t *testing.T) {
	r := NewResolver(nil, nil, JWTGuestMarkers(testSecret))
	sc := &MemorySession{}

	r.Resolve(context.Background(), sc, "10.0.0.7:1")

	payload, err := jwt.ParseToken(sc.Marker, testSecret)
	require.NoError(t, err)
	assert.Equal(t, jwt.UserTypeGuest, payload.UserType)
	assert.Equal(t, "guest-10.0.0.7", payload.ID)
}

func TestResolveIgnoresForeignMarker(t *testing.T) {
	markers := JWTGuestMarkers(testSecret)
	signedElsewhere, err := markers.Issue("guest-10.9.8.7")
	require.NoError(t, err)
	otherSecret, err := JWTGuestMarkers("another-secret").Issue("guest-10.0.0.8")
	require.NoError(t, err)

	cases := map[string]string{
		"malformed":              "admin",
		"unsigned guest id":      "guest-10.9.8.7",
		"unsigned own guest id":  "guest-10.0.0.8",
		"signed for other guest": signedElsewhere,
		"wrong secret":           otherSecret,
		"registered token":       issue(t, "u-1"),
	}

	for name, marker := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewResolver(nil, nil, markers)
			sc := &MemorySession{Marker: marker}

			id := r.Resolve(context.Background(), sc, "10.0.0.8:1")
			assert.Equal(t, Guest("10.0.0.8"), id)

			guestID, err := markers.Open(sc.Marker)
			require.NoError(t, err, "the session is re-marked with a valid marker")
			assert.Equal(t, "guest-10.0.0.8", guestID)
		})
	}
}

func TestResolveUnsignedMarkerBoundToAddress(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	sc := &MemorySession{Marker: "guest-10.9.8.7"}

	id := r.Resolve(context.Background(), sc, "10.0.0.8:1")
	assert.Equal(t, "guest-10.0.0.8", id.ID)
	assert.Equal(t, "guest-10.0.0.8", sc.Marker)
}

func TestResolveRegistered(t *testing.T) {
	alice := Registered("u-1", "alice")
	r := NewResolver(staticDirectory(alice), JWTVerifier(testSecret), nil)
	sc := &MemorySession{Token: issue(t, "u-1")}

	id := r.Resolve(context.Background(), sc, "10.0.0.7:1")

	assert.Equal(t, alice, id)
	assert.False(t, id.IsGuest())
	assert.Empty(t, sc.Marker, "registered sessions are not marked as guest")
}

func TestResolveFallsBackToGuest(t *testing.T) {
	failing := directoryFunc(func(context.Context, string) (Identity, error) {
		return Identity{}, errors.New("db down")
	})

	cases := map[string]struct {
		dir   Directory
		token string
	}{
		"garbage token":  {staticDirectory(), "not-a-jwt"},
		"unknown user":   {staticDirectory(), issue(t, "u-404")},
		"lookup failure": {failing, issue(t, "u-1")},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewResolver(tc.dir, JWTVerifier(testSecret), nil)
			id := r.Resolve(context.Background(), &MemorySession{Token: tc.token}, "10.0.0.9:1")
			assert.Equal(t, Guest("10.0.0.9"), id)
		})
	}
}

func TestResolveStalledLookupFallsBackToGuest(t *testing.T) {
	stalled := directoryFunc(func(ctx context.Context, _ string) (Identity, error) {
		<-ctx.Done()
		return Identity{}, ctx.Err()
	})

	r := NewResolver(stalled, JWTVerifier(testSecret), nil)
	r.lookupTimeout = 20 * time.Millisecond

	done := make(chan Identity, 1)
	go func() {
		done <- r.Resolve(context.Background(), &MemorySession{Token: issue(t, "u-1")}, "10.0.0.9:1")
	}()

	select {
	case id := <-done:
		assert.Equal(t, Guest("10.0.0.9"), id)
	case <-time.After(2 * time.Second):
		t.Fatal("Resolve blocked on a stalled directory")
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "10.0.0.1", NormalizeAddress("10.0.0.1:8080"))
	assert.Equal(t, "10.0.0.1", NormalizeAddress("10.0.0.1"))
	assert.Equal(t, "::1", NormalizeAddress("[::1]:8080"))
	assert.Equal(t, UnknownAddress, NormalizeAddress(""))
	assert.Equal(t, UnknownAddress, NormalizeAddress("  "))
}
