package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/gatewaylabs/creditmeter/ports"
)

// ChatStore implements ports.ChatStore using SQLite.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a new SQLite chat store.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

// AddChat stores a chat row.
func (s *ChatStore) AddChat(ctx context.Context, id, userID string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (id, user_id, created_at) VALUES (?, ?, ?)
	`, id, userID, createdAt.UTC())
	return err
}

// AddMessage stores a message row.
func (s *ChatStore) AddMessage(ctx context.Context, id, chatID, role string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, role, created_at) VALUES (?, ?, ?, ?)
	`, id, chatID, role, createdAt.UTC())
	return err
}

// ChatIDsCreatedSince returns ids of the principal's chats created at or
// after since.
func (s *ChatStore) ChatIDsCreatedSince(ctx context.Context, userID string, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM chats
		WHERE user_id = ? AND datetime(created_at) >= datetime(?)
	`, userID, since.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountUserMessages counts user-role messages within the given chat id set.
func (s *ChatStore) CountUserMessages(ctx context.Context, chatIDs []string, since time.Time) (int64, error) {
	if len(chatIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(chatIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(chatIDs)+1)
	for _, id := range chatIDs {
		args = append(args, id)
	}
	args = append(args, since.UTC().Format("2006-01-02 15:04:05"))

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE chat_id IN (`+placeholders+`)
		  AND role = 'user'
		  AND datetime(created_at) >= datetime(?)
	`, args...)

	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountUserMessagesByOwner is the join-based equivalent of the two-step
// count. It must return the identical number for the same inputs.
func (s *ChatStore) CountUserMessagesByOwner(ctx context.Context, userID string, since time.Time) (int64, error) {
	sinceStr := since.UTC().Format("2006-01-02 15:04:05")
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN chats c ON m.chat_id = c.id
		WHERE c.user_id = ?
		  AND datetime(c.created_at) >= datetime(?)
		  AND m.role = 'user'
		  AND datetime(m.created_at) >= datetime(?)
	`, userID, sinceStr, sinceStr)

	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Ensure interface compliance.
var _ ports.ChatStore = (*ChatStore)(nil)
