package pow

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solve(t *testing.T, nonce string, difficulty int) string {
	t.Helper()
	for i := 0; i < 1_000_000; i++ {
		counter := strconv.Itoa(i)
		if Satisfies(nonce, counter, difficulty) {
			return counter
		}
	}
	t.Fatalf("no counter found for nonce %s", nonce)
	return ""
}

func withToken(token string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)
	r.Header.Set(TokenHeaderKey, token)
	return r
}

func TestChallengeRoundTrip(t *testing.T) {
	g := newGuard(2, time.Now)

	nonce := g.NewChallenge()
	token, err := g.Solve(nonce, solve(t, nonce, 2))
	require.NoError(t, err)

	assert.True(t, g.Redeem(withToken(token)))
	assert.False(t, g.Redeem(withToken(token)), "proof tokens are single use")
}

func TestSolveRejectsReusedNonce(t *testing.T) {
	g := newGuard(1, time.Now)

	nonce := g.NewChallenge()
	counter := solve(t, nonce, 1)

	_, err := g.Solve(nonce, counter)
	require.NoError(t, err)

	_, err = g.Solve(nonce, counter)
	assert.ErrorIs(t, err, ErrNonceInvalid)
}

func TestSolveRejectsWeakProof(t *testing.T) {
	g := newGuard(64, time.Now)

	_, err := g.Solve(g.NewChallenge(), "0")
	assert.ErrorIs(t, err, ErrProofInsufficient)
}

func TestExpiredEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	g := newGuard(1, func() time.Time { return now })

	nonce := g.NewChallenge()
	counter := solve(t, nonce, 1)

	now = now.Add(NonceExpiryDuration + time.Second)
	_, err := g.Solve(nonce, counter)
	assert.ErrorIs(t, err, ErrNonceInvalid)

	nonce = g.NewChallenge()
	token, err := g.Solve(nonce, solve(t, nonce, 1))
	require.NoError(t, err)

	now = now.Add(ProofTokenDuration + time.Second)
	assert.False(t, g.Redeem(withToken(token)))

	g.NewChallenge()
	now = now.Add(NonceExpiryDuration + time.Second)
	g.sweep()
	assert.Empty(t, g.nonces)
	assert.Empty(t, g.tokens)
}

func TestRedeemWithoutToken(t *testing.T) {
	g := newGuard(1, time.Now)
	assert.False(t, g.Redeem(httptest.NewRequest(http.MethodPost, "/", nil)))
}
