/*
Package redisstore keeps the hall's message log in Redis: a LIST of JSON records with ids
taken from an INCR counter.
*/
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hallchat/internal/app/chat"
)

// Store is a Redis-backed chat.Repository
type Store struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis store and verifies the connection
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Store {
	return &Store{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

var _ chat.Repository = (*Store)(nil)

func (s *Store) Append(ctx context.Context, msg *chat.Message) error {
	id, err := s.client.Incr(ctx, messageSeqKey()).Result()
	if err != nil {
		return fmt.Errorf("allocate message id: %w", err)
	}

	record := *msg
	record.ID = id
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, messagesKey(), data)
		if s.cfg.MaxLength > 0 {
			pipe.LTrim(ctx, messagesKey(), -s.cfg.MaxLength, -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}

	msg.ID = id
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return []chat.Message{}, nil
	}

	raw, err := s.client.LRange(ctx, messagesKey(), -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}

	msgs := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
