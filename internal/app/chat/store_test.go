package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(i int) Message {
	return Message{
		UserID:        "guest-10.0.0.1",
		Username:      "游客-10.0.0.1",
		DisplayName:   "游客-10.0.0.1",
		Text:          fmt.Sprintf("message %d", i),
		Timestamp:     "01-01 12:00",
		SourceAddress: "10.0.0.1",
		IsGuest:       true,
		CreatedAt:     time.Date(2024, 1, 1, 12, 0, i, 0, time.UTC),
	}
}

func TestStoreAppendPreservesOrder(t *testing.T) {
	s := NewStore(NewMemoryRepository(), StoreOptions{})

	for i := 0; i < 50; i++ {
		msg := testMessage(i)
		require.NoError(t, s.Append(context.Background(), &msg))
		assert.Equal(t, int64(i+1), msg.ID)
	}

	history := s.RecentHistory(50)
	require.Len(t, history, 50)
	for i, m := range history {
		assert.Equal(t, fmt.Sprintf("message %d", i), m.Text)
	}

	last := s.RecentHistory(3)
	require.Len(t, last, 3)
	assert.Equal(t, "message 47", last[0].Text)
	assert.Equal(t, "message 49", last[2].Text)
}

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(NewMemoryRepository(), StoreOptions{})

	original := testMessage(7)
	msg := original
	require.NoError(t, s.Append(context.Background(), &msg))

	history := s.RecentHistory(1)
	require.Len(t, history, 1)

	got := history[0]
	assert.NotZero(t, got.ID)
	got.ID = 0
	assert.Equal(t, original, got)
}

func TestStoreEvictsBeyondCapacity(t *testing.T) {
	s := NewStore(NewMemoryRepository(), StoreOptions{Capacity: 10})

	for i := 0; i < 35; i++ {
		msg := testMessage(i)
		require.NoError(t, s.Append(context.Background(), &msg))
		assert.LessOrEqual(t, s.Len(), 10)
	}

	history := s.RecentHistory(100)
	require.Len(t, history, 10)
	assert.Equal(t, "message 25", history[0].Text)
	assert.Equal(t, "message 34", history[9].Text)
}

func TestStoreHistoryIsACopy(t *testing.T) {
	s := NewStore(NewMemoryRepository(), StoreOptions{})
	msg := testMessage(1)
	require.NoError(t, s.Append(context.Background(), &msg))

	history := s.RecentHistory(1)
	history[0].Text = "tampered"

	assert.Equal(t, "message 1", s.RecentHistory(1)[0].Text)
	assert.NotNil(t, s.RecentHistory(0))
	assert.Empty(t, s.RecentHistory(0))
}

func TestStoreAppendFailureLeavesCacheUntouched(t *testing.T) {
	repo := &stubRepository{}
	s := NewStore(repo, StoreOptions{})

	msg := testMessage(1)
	require.NoError(t, s.Append(context.Background(), &msg))

	repo.failAppends(errDiskFull)
	failed := testMessage(2)
	err := s.Append(context.Background(), &failed)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "append", storeErr.Op)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Zero(t, failed.ID)
	assert.Equal(t, 1, s.Len())
}

func TestStoreAppendTimesOut(t *testing.T) {
	repo := &stubRepository{block: true}
	s := NewStore(repo, StoreOptions{WriteTimeout: 20 * time.Millisecond})

	msg := testMessage(1)
	start := time.Now()
	err := s.Append(context.Background(), &msg)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Zero(t, s.Len())
}

func TestStoreLoadOnStartup(t *testing.T) {
	repo := NewMemoryRepository()
	for i := 0; i < 15; i++ {
		msg := testMessage(i)
		require.NoError(t, repo.Append(context.Background(), &msg))
	}

	s := NewStore(repo, StoreOptions{Capacity: 10})
	assert.Equal(t, 10, s.LoadOnStartup(context.Background()))

	history := s.RecentHistory(10)
	require.Len(t, history, 10)
	assert.Equal(t, "message 5", history[0].Text)
	assert.Equal(t, "message 14", history[9].Text)
}

func TestStoreLoadFailureStartsEmpty(t *testing.T) {
	s := NewStore(&stubRepository{recentErr: errDiskFull}, StoreOptions{})

	assert.Equal(t, 0, s.LoadOnStartup(context.Background()))
	assert.Empty(t, s.RecentHistory(100))
}

func TestStoreConcurrentAppendsAndReads(t *testing.T) {
	s := NewStore(NewMemoryRepository(), StoreOptions{Capacity: 64})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				msg := testMessage(w*100 + i)
				assert.NoError(t, s.Append(context.Background(), &msg))
				s.RecentHistory(10)
			}
		}(w)
	}
	wg.Wait()

	history := s.RecentHistory(64)
	require.Len(t, history, 64)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].ID, history[i-1].ID, "history is in append order")
	}
}
