package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ucmarket/backend/internal/models"
)

// MessageStore is the per-user inbox used for credential delivery.
type MessageStore struct {
	db DBTX
}

func NewMessageStore(db DBTX) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) WithTx(tx *sql.Tx) *MessageStore {
	return &MessageStore{db: tx}
}

// Deliver creates one unread message for the user and returns its id.
func (s *MessageStore) Deliver(ctx context.Context, userID, title, content string, msgType models.MessageType) (string, error) {
	if !msgType.Valid() {
		return "", fmt.Errorf("message type %q: %w", msgType, ErrInvalidVariant)
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, user_id, title, content, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, userID, title, content, msgType, false, now())
	if err != nil {
		return "", fmt.Errorf("deliver message to %s: %w", userID, err)
	}
	return id, nil
}

func (s *MessageStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, content, type, read, created_at
		FROM messages WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Title, &m.Content, &m.Type, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *MessageStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE user_id = $1 AND read = $2`,
		userID, false).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's messages as read. Messages owned by
// someone else are reported as not found.
func (s *MessageStore) MarkRead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET read = $1 WHERE id = $2 AND user_id = $3`,
		true, id, userID)
	if err != nil {
		return fmt.Errorf("mark read %s: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MessageStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET read = $1 WHERE user_id = $2 AND read = $3`,
		true, userID, false)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return rowsAffected(res)
}
