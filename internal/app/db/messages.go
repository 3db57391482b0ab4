package db

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgtype"

	"hallchat/internal/app/chat"
	dbc "hallchat/internal/app/db/sqlc"
)

// MessageQueries is the subset of the generated queries the message log needs.
type MessageQueries interface {
	InsertMessage(ctx context.Context, arg dbc.InsertMessageParams) (int64, error)
	ListRecentMessages(ctx context.Context, limit int32) ([]dbc.Message, error)
}

// MessageRepository stores the hall's messages in the messages table.
type MessageRepository struct {
	q MessageQueries
}

// NewMessageRepository returns a chat.Repository over q.
func NewMessageRepository(q MessageQueries) *MessageRepository {
	return &MessageRepository{q: q}
}

var _ chat.Repository = (*MessageRepository)(nil)

func (r *MessageRepository) Append(ctx context.Context, msg *chat.Message) error {
	id, err := r.q.InsertMessage(ctx, dbc.InsertMessageParams{
		UserID:        msg.UserID,
		Username:      msg.Username,
		DisplayName:   msg.DisplayName,
		Text:          msg.Text,
		Timestamp:     msg.Timestamp,
		SourceAddress: msg.SourceAddress,
		IsGuest:       msg.IsGuest,
		CreatedAt:     pgtype.Timestamptz{Time: msg.CreatedAt, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	msg.ID = id
	return nil
}

func (r *MessageRepository) Recent(ctx context.Context, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return []chat.Message{}, nil
	}
	if limit > math.MaxInt32 {
		limit = math.MaxInt32
	}

	rows, err := r.q.ListRecentMessages(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}

	msgs := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, chat.Message{
			ID:            row.ID,
			UserID:        row.UserID,
			Username:      row.Username,
			DisplayName:   row.DisplayName,
			Text:          row.Text,
			Timestamp:     row.Timestamp,
			SourceAddress: row.SourceAddress,
			IsGuest:       row.IsGuest,
			CreatedAt:     row.CreatedAt.Time.UTC(),
		})
	}
	return msgs, nil
}
