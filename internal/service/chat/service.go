package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wowinn/acg-ai/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyContent    = errors.New("message content is required")
	ErrInvalidRole     = errors.New("invalid message role")
	ErrInvalidModality = errors.New("invalid message modality")
)

// Service 管理会话与消息的追加式存储。所有写入都在 Service 锁内完成，
// 会话的 UpdatedAt 只随消息追加推进，读取不会触碰它。
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewService bootstraps the in-memory transcript store.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// CreateSession provisions a session, optionally bound to a character.
func (s *Service) CreateSession(_ context.Context, characterID, name string) (chat.Session, error) {
	if name == "" {
		name = "新对话"
	}

	now := time.Now().UTC()
	session := chat.Session{
		ID:          uuid.NewString(),
		CharacterID: characterID,
		Name:        name,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves an active session by identifier. Deactivated sessions
// resolve as not found.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok || !session.Active {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns active sessions, most recently updated first,
// optionally filtered by character.
func (s *Service) ListSessions(_ context.Context, characterID string) []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]chat.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		if !session.Active {
			continue
		}
		if characterID != "" && session.CharacterID != characterID {
			continue
		}
		result = append(result, session)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

// DeactivateSession soft-deletes a session. History is kept; the session
// rejects new turns and disappears from lookups.
func (s *Service) DeactivateSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || !session.Active {
		return ErrSessionNotFound
	}
	session.Active = false
	s.sessions[sessionID] = session
	return nil
}

// AppendMessage validates and appends a turn, assigning identity and
// timestamp, and bumps the session's UpdatedAt under the same lock.
func (s *Service) AppendMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.Content == "" {
		return chat.Message{}, ErrEmptyContent
	}
	if !message.Role.Valid() {
		return chat.Message{}, ErrInvalidRole
	}
	if message.Modality == "" {
		message.Modality = chat.ModalityText
	}
	if !message.Modality.Valid() {
		return chat.Message{}, ErrInvalidModality
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[message.SessionID]
	if !ok || !session.Active {
		return chat.Message{}, ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	message.CreatedAt = time.Now().UTC()

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)

	session.UpdatedAt = message.CreatedAt
	s.sessions[message.SessionID] = session

	return message, nil
}

// RecentMessages returns the k most recent turns in chronological
// (oldest-first) order. An empty history is a valid result.
func (s *Service) RecentMessages(_ context.Context, sessionID string, k int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	start := 0
	if k > 0 && len(messages) > k {
		start = len(messages) - k
	}

	window := make([]chat.Message, len(messages)-start)
	copy(window, messages[start:])
	return window, nil
}

// Messages returns up to limit most recent turns, oldest first. limit <= 0
// means the full transcript.
func (s *Service) Messages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	return s.RecentMessages(ctx, sessionID, limit)
}
