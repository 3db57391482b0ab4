package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"hallchat/internal/app/chat"
)

type StoreSuite struct {
	suite.Suite
	mini  *miniredis.Miniredis
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.store = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func message(i int) chat.Message {
	return chat.Message{
		UserID:        "guest-10.0.0.7",
		Username:      "游客-10.0.0.7",
		DisplayName:   "游客-10.0.0.7",
		Text:          fmt.Sprintf("message %d", i),
		Timestamp:     "03-14 09:26",
		SourceAddress: "10.0.0.7",
		IsGuest:       true,
		CreatedAt:     time.Date(2024, 3, 14, 9, 26, i, 0, time.UTC),
	}
}

func (s *StoreSuite) TestAppendAssignsSequentialIDs() {
	for i := 1; i <= 3; i++ {
		msg := message(i)
		s.Require().NoError(s.store.Append(s.ctx, &msg))
		s.Equal(int64(i), msg.ID)
	}

	seq, err := s.mini.Get(messageSeqKey())
	s.Require().NoError(err)
	s.Equal("3", seq)
}

func (s *StoreSuite) TestRecentReturnsNewestInOrder() {
	for i := 0; i < 10; i++ {
		msg := message(i)
		s.Require().NoError(s.store.Append(s.ctx, &msg))
	}

	recent, err := s.store.Recent(s.ctx, 4)
	s.Require().NoError(err)
	s.Require().Len(recent, 4)
	for i, m := range recent {
		s.Equal(fmt.Sprintf("message %d", 6+i), m.Text)
	}

	all, err := s.store.Recent(s.ctx, 100)
	s.Require().NoError(err)
	s.Len(all, 10)
}

func (s *StoreSuite) TestRoundTrip() {
	original := message(42)
	msg := original
	s.Require().NoError(s.store.Append(s.ctx, &msg))

	recent, err := s.store.Recent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)

	got := recent[0]
	s.Equal(msg.ID, got.ID)
	got.ID = 0
	s.Equal(original.Text, got.Text)
	s.Equal(original.UserID, got.UserID)
	s.Equal(original.IsGuest, got.IsGuest)
	s.True(original.CreatedAt.Equal(got.CreatedAt))
}

func (s *StoreSuite) TestRecentOnEmptyLog() {
	recent, err := s.store.Recent(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(recent)

	recent, err = s.store.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(recent)
}

func (s *StoreSuite) TestMaxLengthTrimsOldest() {
	s.store.cfg.MaxLength = 5
	for i := 0; i < 8; i++ {
		msg := message(i)
		s.Require().NoError(s.store.Append(s.ctx, &msg))
	}

	items, err := s.mini.List(messagesKey())
	s.Require().NoError(err)
	s.Len(items, 5)

	recent, err := s.store.Recent(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal("message 3", recent[0].Text)
}

func (s *StoreSuite) TestUnreachableServerIsAnError() {
	s.mini.Close()

	msg := message(1)
	s.Error(s.store.Append(s.ctx, &msg))
	s.Zero(msg.ID)

	_, err := s.store.Recent(s.ctx, 10)
	s.Error(err)
}

func (s *StoreSuite) TestBacksMessageStore() {
	store := chat.NewStore(s.store, chat.StoreOptions{Capacity: 3})

	for i := 0; i < 5; i++ {
		msg := message(i)
		s.Require().NoError(store.Append(s.ctx, &msg))
	}

	reloaded := chat.NewStore(s.store, chat.StoreOptions{Capacity: 3})
	s.Equal(3, reloaded.LoadOnStartup(s.ctx))
	s.Equal(store.RecentHistory(3), reloaded.RecentHistory(3))
}
