package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
)

type ConversationRepository struct {
	collection *mongo.Collection
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new MongoDB conversation repository
func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{
		collection: db.Collection(conversationsCollection),
	}
}

// Create implements repositories.ConversationRepository
func (r *ConversationRepository) Create(ctx context.Context, conversation *entities.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if err := conversation.Validate(); err != nil {
		return fmt.Errorf("invalid conversation: %w", err)
	}

	if conversation.ID == "" {
		conversation.ID = primitive.NewObjectID().Hex()
	}
	if conversation.StartedAt.IsZero() {
		conversation.StartedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, conversation); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetByID implements repositories.ConversationRepository
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*entities.Conversation, error) {
	var conversation entities.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return &conversation, nil
}

// End implements repositories.ConversationRepository
func (r *ConversationRepository) End(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "ended_at": at.UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to end conversation %s: %w", id, err)
	}
	if result.MatchedCount == 1 {
		return true, nil
	}

	// Nothing matched: either already ended or unknown
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to look up conversation %s: %w", id, err)
	}
	if count == 0 {
		return false, repositories.ErrNotFound
	}
	return false, nil
}

// IncrementTranslationCount implements repositories.ConversationRepository
func (r *ConversationRepository) IncrementTranslationCount(ctx context.Context, id string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"translation_count": 1}},
	)
	if err != nil {
		return fmt.Errorf("failed to increment translation count: %w", err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// ListByUser implements repositories.ConversationRepository
func (r *ConversationRepository) ListByUser(ctx context.Context, userID string, limit int, includeActive bool) ([]*entities.Conversation, error) {
	filter := bson.M{"userId": userID}
	if !includeActive {
		filter["is_active"] = false
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

// GetActiveByUser implements repositories.ConversationRepository
func (r *ConversationRepository) GetActiveByUser(ctx context.Context, userID string) ([]*entities.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	return r.find(ctx, bson.M{"userId": userID, "is_active": true}, opts)
}

// ListStaleActive implements repositories.ConversationRepository
func (r *ConversationRepository) ListStaleActive(ctx context.Context, cutoff time.Time) ([]*entities.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}})
	return r.find(ctx, bson.M{"is_active": true, "started_at": bson.M{"$lt": cutoff.UTC()}}, opts)
}

// Delete implements repositories.ConversationRepository
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ConversationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entities.Conversation, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := make([]*entities.Conversation, 0)
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}
