package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gatewaylabs/creditmeter/ports"
)

// Chat is a minimal chat record for the in-memory store.
type Chat struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Message is a minimal message record for the in-memory store.
type Message struct {
	ID        string
	ChatID    string
	Role      string
	CreatedAt time.Time
}

// ChatStore is an in-memory implementation of ports.ChatStore.
type ChatStore struct {
	mu       sync.RWMutex
	chats    []Chat
	messages []Message
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{}
}

// AddChat stores a chat (for testing).
func (s *ChatStore) AddChat(c Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, c)
}

// AddMessage stores a message (for testing).
func (s *ChatStore) AddMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// ChatIDsCreatedSince returns ids of the principal's chats created at or
// after since.
func (s *ChatStore) ChatIDsCreatedSince(ctx context.Context, userID string, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, c := range s.chats {
		if c.UserID == userID && !c.CreatedAt.Before(since) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// CountUserMessages counts user-role messages in the given chats created at
// or after since.
func (s *ChatStore) CountUserMessages(ctx context.Context, chatIDs []string, since time.Time) (int64, error) {
	if len(chatIDs) == 0 {
		return 0, nil
	}
	want := make(map[string]bool, len(chatIDs))
	for _, id := range chatIDs {
		want[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, m := range s.messages {
		if m.Role == "user" && want[m.ChatID] && !m.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// CountUserMessagesByOwner is the join-based equivalent count.
func (s *ChatStore) CountUserMessagesByOwner(ctx context.Context, userID string, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make(map[string]bool)
	for _, c := range s.chats {
		if c.UserID == userID && !c.CreatedAt.Before(since) {
			owned[c.ID] = true
		}
	}

	var n int64
	for _, m := range s.messages {
		if m.Role == "user" && owned[m.ChatID] && !m.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// Ensure interface compliance.
var _ ports.ChatStore = (*ChatStore)(nil)
