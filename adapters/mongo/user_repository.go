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

type UserRepository struct {
	collection *mongo.Collection
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new MongoDB user repository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection(usersCollection),
	}
}

// GetOrCreateByGoogleID implements repositories.UserRepository
func (r *UserRepository) GetOrCreateByGoogleID(ctx context.Context, googleID, email string) (*entities.User, error) {
	if googleID == "" {
		return nil, errors.New("google id cannot be empty")
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{"email": email, "updated_at": now},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID().Hex(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user entities.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"googleId": googleID}, update, opts).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}

// GetByID implements repositories.UserRepository
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &user, nil
}
