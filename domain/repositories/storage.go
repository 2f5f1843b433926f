package repositories

import (
	"context"
	"time"

	"github.com/translatar/gateway/domain/entities"
)

// ConversationRepository defines data access methods for conversations
type ConversationRepository interface {
	Create(ctx context.Context, conversation *entities.Conversation) error
	GetByID(ctx context.Context, id string) (*entities.Conversation, error)
	// End marks an active conversation as ended. It returns false without an
	// error when the conversation exists but was already ended.
	End(ctx context.Context, id string, at time.Time) (bool, error)
	IncrementTranslationCount(ctx context.Context, id string) error
	// ListByUser returns conversations newest first
	ListByUser(ctx context.Context, userID string, limit int, includeActive bool) ([]*entities.Conversation, error)
	GetActiveByUser(ctx context.Context, userID string) ([]*entities.Conversation, error)
	// ListStaleActive returns active conversations started before cutoff
	ListStaleActive(ctx context.Context, cutoff time.Time) ([]*entities.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// TranslationRepository defines data access methods for translation records
type TranslationRepository interface {
	Insert(ctx context.Context, record *entities.TranslationRecord) error
	CountByConversation(ctx context.Context, conversationID string) (int, error)
	// ListByConversation returns records sorted by sequence number ascending
	ListByConversation(ctx context.Context, conversationID string) ([]*entities.TranslationRecord, error)
	DeleteByConversation(ctx context.Context, conversationID string) (int, error)
}

// UserRepository defines data access methods for users
type UserRepository interface {
	// GetOrCreateByGoogleID returns the user with googleID, creating it on first sign-in
	GetOrCreateByGoogleID(ctx context.Context, googleID, email string) (*entities.User, error)
	GetByID(ctx context.Context, id string) (*entities.User, error)
}

// HealthChecker is implemented by storage backends that can report liveness
type HealthChecker interface {
	Ping(ctx context.Context) error
}
