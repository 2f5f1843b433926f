package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
)

// UserRepository is an in-memory implementation of repositories.UserRepository
type UserRepository struct {
	mu       sync.RWMutex
	users    map[string]*entities.User // id -> user
	byGoogle map[string]string         // google id -> user id
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:    make(map[string]*entities.User),
		byGoogle: make(map[string]string),
	}
}

// GetOrCreateByGoogleID implements repositories.UserRepository
func (m *UserRepository) GetOrCreateByGoogleID(ctx context.Context, googleID, email string) (*entities.User, error) {
	if googleID == "" {
		return nil, errors.New("google id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if id, exists := m.byGoogle[googleID]; exists {
		user := m.users[id]
		user.Email = email
		user.UpdatedAt = now
		userCopy := *user
		return &userCopy, nil
	}

	user := &entities.User{
		ID:        uuid.New().String(),
		GoogleID:  googleID,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	m.users[user.ID] = user
	m.byGoogle[googleID] = user.ID

	userCopy := *user
	return &userCopy, nil
}

// GetByID implements repositories.UserRepository
func (m *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	userCopy := *user
	return &userCopy, nil
}
