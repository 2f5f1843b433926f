package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	incrementAttempts = 3
	incrementBackoff  = 50 * time.Millisecond
)

// ErrTranslationCountStale is returned with the stored record when the record
// was written but the conversation counter could not be incremented
var ErrTranslationCountStale = errors.New("translation count not updated")

// AppendInput carries one translated utterance to attach to a conversation
type AppendInput struct {
	ConversationID      string
	OriginalText        string
	TranslatedText      string
	SourceLang          string
	TargetLang          string
	DetectedLanguage    *string
	LanguageProbability *float64
	UserID              string
}

// ConversationService tracks conversations and their translation records
type ConversationService struct {
	conversations repositories.ConversationRepository
	translations  repositories.TranslationRepository
	logger        *zap.Logger
	now           func() time.Time
	backoff       time.Duration
}

// NewConversationService creates a new conversation service
func NewConversationService(
	conversations repositories.ConversationRepository,
	translations repositories.TranslationRepository,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		translations:  translations,
		logger:        logger,
		now:           time.Now,
		backoff:       incrementBackoff,
	}
}

// Start creates an active conversation and returns its id
func (s *ConversationService) Start(ctx context.Context, userID, sourceLang, targetLang string) (string, error) {
	conversation := entities.NewConversation(userID, sourceLang, targetLang)
	conversation.StartedAt = s.now().UTC()
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return "", fmt.Errorf("failed to start conversation: %w", err)
	}

	s.logger.Info("Conversation started",
		zap.String("conversationID", conversation.ID),
		zap.String("userID", userID))
	return conversation.ID, nil
}

// End closes a conversation. Ending an already ended conversation is a
// successful no-op; an unknown id returns false with ErrNotFound.
func (s *ConversationService) End(ctx context.Context, conversationID string) (bool, error) {
	transitioned, err := s.conversations.End(ctx, conversationID, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("failed to end conversation: %w", err)
	}

	if transitioned {
		s.logger.Info("Conversation ended", zap.String("conversationID", conversationID))
	} else {
		s.logger.Debug("Conversation already ended", zap.String("conversationID", conversationID))
	}
	return true, nil
}

// EndOwned ends a conversation on behalf of userID. Conversations of other
// users are reported as ErrNotFound.
func (s *ConversationService) EndOwned(ctx context.Context, conversationID, userID string) error {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.OwnedBy(userID) {
		return repositories.ErrNotFound
	}
	_, err = s.End(ctx, conversationID)
	return err
}

// Append persists the next record of a conversation. The sequence number is
// one past the current record count, so callers must append sequentially.
func (s *ConversationService) Append(ctx context.Context, in AppendInput) (*entities.TranslationRecord, error) {
	count, err := s.translations.CountByConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count translation records: %w", err)
	}

	record := &entities.TranslationRecord{
		ConversationID:      in.ConversationID,
		OriginalText:        in.OriginalText,
		TranslatedText:      in.TranslatedText,
		SourceLang:          in.SourceLang,
		TargetLang:          in.TargetLang,
		DetectedLanguage:    in.DetectedLanguage,
		LanguageProbability: in.LanguageProbability,
		UserID:              in.UserID,
		Timestamp:           s.now().UTC(),
		SequenceNumber:      count + 1,
	}
	if err := s.translations.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to insert translation record: %w", err)
	}

	if err := s.incrementCount(ctx, in.ConversationID); err != nil {
		// Client declared ids have no conversation document to count on
		if !errors.Is(err, repositories.ErrNotFound) {
			return record, fmt.Errorf("%w: %v", ErrTranslationCountStale, err)
		}
		s.logger.Debug("Appended to external conversation id", zap.String("conversationID", in.ConversationID))
	}

	return record, nil
}

// incrementCount retries transient counter failures so the count keeps
// matching the number of stored records
func (s *ConversationService) incrementCount(ctx context.Context, conversationID string) error {
	var err error
	for attempt := 1; attempt <= incrementAttempts; attempt++ {
		err = s.conversations.IncrementTranslationCount(ctx, conversationID)
		if err == nil || errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		s.logger.Warn("Failed to increment translation count",
			zap.String("conversationID", conversationID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == incrementAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}
	return err
}

// InsertLegacy persists a record that belongs to no conversation
func (s *ConversationService) InsertLegacy(ctx context.Context, record *entities.TranslationRecord) error {
	record.ConversationID = ""
	record.SequenceNumber = 0
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now().UTC()
	}
	if err := s.translations.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to insert legacy translation record: %w", err)
	}
	return nil
}

// GetWithRecords returns a conversation and its records ordered by sequence
// number. A non-empty userID restricts the lookup to that owner.
func (s *ConversationService) GetWithRecords(ctx context.Context, conversationID, userID string) (*entities.ConversationDetail, error) {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if userID != "" && !conversation.OwnedBy(userID) {
		return nil, repositories.ErrNotFound
	}

	records, err := s.translations.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list translation records: %w", err)
	}

	return &entities.ConversationDetail{Conversation: conversation, Translations: records}, nil
}

// List returns a user's conversations newest first
func (s *ConversationService) List(ctx context.Context, userID string, limit int, includeActive bool) ([]*entities.Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.conversations.ListByUser(ctx, userID, limit, includeActive)
}

// ActiveFor returns the most recently started active conversation of a user
func (s *ConversationService) ActiveFor(ctx context.Context, userID string) (*entities.Conversation, error) {
	active, err := s.conversations.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, repositories.ErrNotFound
	}
	return active[0], nil
}

// Delete removes a conversation owned by userID along with its records
func (s *ConversationService) Delete(ctx context.Context, conversationID, userID string) error {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.OwnedBy(userID) {
		return repositories.ErrNotFound
	}

	deleted, err := s.translations.DeleteByConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete translation records: %w", err)
	}
	if err := s.conversations.Delete(ctx, conversationID); err != nil {
		return err
	}

	s.logger.Info("Conversation deleted",
		zap.String("conversationID", conversationID),
		zap.Int("deletedRecords", deleted))
	return nil
}

// Resume checks whether a client supplied conversation id may be used by
// userID. It reports whether the id is known to the store; unknown ids are
// accepted as external ids.
func (s *ConversationService) Resume(ctx context.Context, conversationID, userID string) (bool, error) {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if conversation.UserID != userID {
		return true, repositories.ErrConversationInUse
	}
	return true, nil
}

// EndStale ends conversations active since before cutoff, skipping those
// for which skip reports true. It returns the ids it ended.
func (s *ConversationService) EndStale(ctx context.Context, cutoff time.Time, skip func(conversationID string) bool) ([]string, error) {
	stale, err := s.conversations.ListStaleActive(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale conversations: %w", err)
	}

	var ended []string
	for _, conversation := range stale {
		if skip != nil && skip(conversation.ID) {
			continue
		}
		transitioned, err := s.conversations.End(ctx, conversation.ID, s.now())
		if err != nil {
			s.logger.Warn("Failed to end stale conversation",
				zap.String("conversationID", conversation.ID),
				zap.Error(err))
			continue
		}
		if transitioned {
			ended = append(ended, conversation.ID)
		}
	}
	return ended, nil
}
