package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
)

// ConversationRepository is an in-memory implementation of repositories.ConversationRepository
type ConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*entities.Conversation
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new in-memory conversation repository
func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		conversations: make(map[string]*entities.Conversation),
	}
}

// Create implements repositories.ConversationRepository
func (m *ConversationRepository) Create(ctx context.Context, conversation *entities.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if err := conversation.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	if _, exists := m.conversations[conversation.ID]; exists {
		return errors.New("conversation with this ID already exists")
	}
	if conversation.StartedAt.IsZero() {
		conversation.StartedAt = time.Now().UTC()
	}

	conversationCopy := *conversation
	m.conversations[conversation.ID] = &conversationCopy
	return nil
}

// GetByID implements repositories.ConversationRepository
func (m *ConversationRepository) GetByID(ctx context.Context, id string) (*entities.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conversation, exists := m.conversations[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return copyConversation(conversation), nil
}

// End implements repositories.ConversationRepository
func (m *ConversationRepository) End(ctx context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conversation, exists := m.conversations[id]
	if !exists {
		return false, repositories.ErrNotFound
	}
	return conversation.End(at), nil
}

// IncrementTranslationCount implements repositories.ConversationRepository
func (m *ConversationRepository) IncrementTranslationCount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conversation, exists := m.conversations[id]
	if !exists {
		return repositories.ErrNotFound
	}
	conversation.TranslationCount++
	return nil
}

// ListByUser implements repositories.ConversationRepository
func (m *ConversationRepository) ListByUser(ctx context.Context, userID string, limit int, includeActive bool) ([]*entities.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Conversation, 0)
	for _, c := range m.conversations {
		if c.UserID != userID || (!includeActive && c.IsActive) {
			continue
		}
		result = append(result, copyConversation(c))
	}
	sortNewestFirst(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetActiveByUser implements repositories.ConversationRepository
func (m *ConversationRepository) GetActiveByUser(ctx context.Context, userID string) ([]*entities.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Conversation, 0)
	for _, c := range m.conversations {
		if c.UserID == userID && c.IsActive {
			result = append(result, copyConversation(c))
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// ListStaleActive implements repositories.ConversationRepository
func (m *ConversationRepository) ListStaleActive(ctx context.Context, cutoff time.Time) ([]*entities.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Conversation, 0)
	for _, c := range m.conversations {
		if c.IsActive && c.StartedAt.Before(cutoff) {
			result = append(result, copyConversation(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

// Delete implements repositories.ConversationRepository
func (m *ConversationRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.conversations, id)
	return nil
}

// Ping implements repositories.HealthChecker
func (m *ConversationRepository) Ping(ctx context.Context) error {
	return nil
}

// copyConversation returns a copy to prevent external modifications
func copyConversation(c *entities.Conversation) *entities.Conversation {
	conversationCopy := *c
	if c.EndedAt != nil {
		endedAt := *c.EndedAt
		conversationCopy.EndedAt = &endedAt
	}
	return &conversationCopy
}

func sortNewestFirst(conversations []*entities.Conversation) {
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].StartedAt.After(conversations[j].StartedAt)
	})
}
