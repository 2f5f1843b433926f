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

type TranslationRepository struct {
	collection *mongo.Collection
}

var _ repositories.TranslationRepository = (*TranslationRepository)(nil)

// NewTranslationRepository creates a new MongoDB translation repository
func NewTranslationRepository(db *mongo.Database) *TranslationRepository {
	return &TranslationRepository{
		collection: db.Collection(translationsCollection),
	}
}

// Insert implements repositories.TranslationRepository
func (r *TranslationRepository) Insert(ctx context.Context, record *entities.TranslationRecord) error {
	if record == nil {
		return errors.New("translation record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid translation record: %w", err)
	}

	if record.ID == "" {
		record.ID = primitive.NewObjectID().Hex()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert translation record: %w", err)
	}
	return nil
}

// CountByConversation implements repositories.TranslationRepository
func (r *TranslationRepository) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return 0, fmt.Errorf("failed to count translation records: %w", err)
	}
	return int(count), nil
}

// ListByConversation implements repositories.TranslationRepository
func (r *TranslationRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entities.TranslationRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequence_number", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find translation records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*entities.TranslationRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode translation records: %w", err)
	}
	return records, nil
}

// DeleteByConversation implements repositories.TranslationRepository
func (r *TranslationRepository) DeleteByConversation(ctx context.Context, conversationID string) (int, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete translation records: %w", err)
	}
	return int(result.DeletedCount), nil
}
