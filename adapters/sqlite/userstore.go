package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gatewaylabs/creditmeter/ports"
)

// ErrUserNotFound is returned for unknown user ids.
var ErrUserNotFound = errors.New("user not found")

// UserStore implements ports.UserStore using SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Put stores or replaces a user row.
func (s *UserStore) Put(ctx context.Context, u ports.User) error {
	var msgLimit any
	if u.MessageLimitSet {
		msgLimit = u.MessageLimit
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, customer_id, message_limit)
		VALUES (?, NULLIF(?, ''), ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			message_limit = excluded.message_limit
	`, u.ID, u.CustomerID, msgLimit)
	return err
}

// Get retrieves a user by id.
func (s *UserStore) Get(ctx context.Context, id string) (ports.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(customer_id, ''), message_limit
		FROM users WHERE id = ?
	`, id)

	var u ports.User
	var msgLimit sql.NullInt64
	err := row.Scan(&u.ID, &u.CustomerID, &msgLimit)
	if err == sql.ErrNoRows {
		return ports.User{}, ErrUserNotFound
	}
	if err != nil {
		return ports.User{}, err
	}
	if msgLimit.Valid {
		u.MessageLimit = msgLimit.Int64
		u.MessageLimitSet = true
	}
	return u, nil
}

// Ensure interface compliance.
var _ ports.UserStore = (*UserStore)(nil)
