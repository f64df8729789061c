package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dealmatch-service/internal/models"
)

// MessageRepository is the append-only transcript store.
type MessageRepository interface {
	Append(ctx context.Context, matchID, senderID, clientMsgID, text string) (models.Message, error)
	ListForMatch(ctx context.Context, matchID string) ([]models.Message, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, match_id, sender_id, client_msg_id, text, created_at`

// Append persists a message. clientMsgID is the sender's idempotency key:
// a retried send with the same key returns the row persisted by the first
// attempt instead of inserting a duplicate.
func (r *MessageRepo) Append(ctx context.Context, matchID, senderID, clientMsgID, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (match_id, sender_id, client_msg_id, text) VALUES ($1, $2, $3, $4)
         RETURNING `+messageColumns,
		matchID, senderID, clientMsgID, text).StructScan(&msg)
	if err == nil {
		return msg, nil
	}
	if !isUniqueViolation(err) {
		return models.Message{}, fmt.Errorf("append message: %w", err)
	}

	if err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE match_id=$1 AND client_msg_id=$2`,
		matchID, clientMsgID); err != nil {
		return models.Message{}, fmt.Errorf("read message after conflict: %w", err)
	}
	return msg, nil
}

// ListForMatch returns the full transcript in display order: created_at
// ascending, ties broken by id.
func (r *MessageRepo) ListForMatch(ctx context.Context, matchID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE match_id=$1
         ORDER BY created_at ASC, id ASC`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

var _ MessageRepository = (*MessageRepo)(nil)
