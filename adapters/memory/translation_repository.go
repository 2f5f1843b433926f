package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
)

// TranslationRepository is an in-memory implementation of repositories.TranslationRepository
type TranslationRepository struct {
	mu      sync.RWMutex
	records map[string]*entities.TranslationRecord
	// conversation_id -> sequence numbers in use
	sequences map[string]map[int]struct{}
}

var _ repositories.TranslationRepository = (*TranslationRepository)(nil)

// NewTranslationRepository creates a new in-memory translation repository
func NewTranslationRepository() *TranslationRepository {
	return &TranslationRepository{
		records:   make(map[string]*entities.TranslationRecord),
		sequences: make(map[string]map[int]struct{}),
	}
}

// Insert implements repositories.TranslationRepository
func (m *TranslationRepository) Insert(ctx context.Context, record *entities.TranslationRecord) error {
	if record == nil {
		return errors.New("translation record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if record.ConversationID != "" {
		used := m.sequences[record.ConversationID]
		if _, exists := used[record.SequenceNumber]; exists {
			return fmt.Errorf("sequence number %d already used in conversation %s", record.SequenceNumber, record.ConversationID)
		}
		if used == nil {
			used = make(map[int]struct{})
			m.sequences[record.ConversationID] = used
		}
		used[record.SequenceNumber] = struct{}{}
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	recordCopy := *record
	m.records[record.ID] = &recordCopy
	return nil
}

// CountByConversation implements repositories.TranslationRepository
func (m *TranslationRepository) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sequences[conversationID]), nil
}

// ListByConversation implements repositories.TranslationRepository
func (m *TranslationRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entities.TranslationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.TranslationRecord, 0)
	for _, r := range m.records {
		if r.ConversationID == conversationID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SequenceNumber < result[j].SequenceNumber
	})
	return result, nil
}

// DeleteByConversation implements repositories.TranslationRepository
func (m *TranslationRepository) DeleteByConversation(ctx context.Context, conversationID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, r := range m.records {
		if r.ConversationID == conversationID {
			delete(m.records, id)
			deleted++
		}
	}
	delete(m.sequences, conversationID)
	return deleted, nil
}

// Legacy returns records written without a conversation, oldest first
func (m *TranslationRepository) Legacy() []*entities.TranslationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.TranslationRecord, 0)
	for _, r := range m.records {
		if r.ConversationID == "" {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result
}
