/*
Package pow implements a Proof-of-Work gate for account registration.

A client fetches a nonce, searches for a counter such that sha256(nonce+counter) has
the configured number of leading hex zeros, and trades the proof for a short-lived
single-use token that the registration endpoint requires.
*/
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenHeaderKey is the HTTP header carrying the proof token.
	TokenHeaderKey = "X-PoW-Token"

	// ProofTokenDuration is how long an issued proof token stays valid.
	ProofTokenDuration = 30 * time.Second

	// NonceExpiryDuration is how long a challenge nonce stays valid.
	NonceExpiryDuration = 5 * time.Minute
)

var (
	// ErrNonceInvalid is returned for unknown, expired or already consumed nonces.
	ErrNonceInvalid = errors.New("pow: nonce expired or invalid")

	// ErrProofInsufficient is returned when the hash does not meet the difficulty.
	ErrProofInsufficient = errors.New("pow: proof does not meet difficulty requirement")
)

// Guard issues challenges and proof tokens. Safe for concurrent use.
type Guard struct {
	difficulty int
	now        func() time.Time

	mu     sync.Mutex
	nonces map[string]time.Time
	tokens map[string]time.Time
}

// NewGuard creates a Guard with the given difficulty (leading hex zeros).
// Expired entries are swept once a minute until ctx is cancelled.
func NewGuard(ctx context.Context, difficulty int) *Guard {
	g := newGuard(difficulty, time.Now)
	go g.sweepLoop(ctx)
	return g
}

func newGuard(difficulty int, now func() time.Time) *Guard {
	return &Guard{
		difficulty: difficulty,
		now:        now,
		nonces:     make(map[string]time.Time),
		tokens:     make(map[string]time.Time),
	}
}

// Difficulty returns the number of leading hex zeros a proof must have.
func (g *Guard) Difficulty() int {
	return g.difficulty
}

// NewChallenge stores and returns a fresh nonce.
func (g *Guard) NewChallenge() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	nonce := uuid.NewString()
	g.nonces[nonce] = g.now().Add(NonceExpiryDuration)
	return nonce
}

// Solve consumes nonce if sha256(nonce+counter) satisfies the difficulty and returns a proof token.
func (g *Guard) Solve(nonce, counter string) (string, error) {
	if !Satisfies(nonce, counter, g.difficulty) {
		return "", ErrProofInsufficient
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.nonces[nonce]
	if !ok || g.now().After(expiry) {
		return "", ErrNonceInvalid
	}
	delete(g.nonces, nonce)

	token := uuid.NewString()
	g.tokens[token] = g.now().Add(ProofTokenDuration)
	return token, nil
}

// Redeem consumes the proof token carried by r (header or pow_token query parameter).
// A token can be redeemed once.
func (g *Guard) Redeem(r *http.Request) bool {
	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		token = r.URL.Query().Get("pow_token")
	}
	if token == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.tokens[token]
	if !ok {
		return false
	}
	delete(g.tokens, token)

	return !g.now().After(expiry)
}

// Satisfies reports whether sha256(nonce+counter) starts with difficulty hex zeros.
func Satisfies(nonce, counter string, difficulty int) bool {
	sum := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(sum[:]), strings.Repeat("0", difficulty))
}

func (g *Guard) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

func (g *Guard) sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for nonce, expiry := range g.nonces {
		if now.After(expiry) {
			delete(g.nonces, nonce)
		}
	}
	for token, expiry := range g.tokens {
		if now.After(expiry) {
			delete(g.tokens, token)
		}
	}
}
