package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
)

// TestRepositories_Integration requires a running MongoDB instance
// (skipped if MONGODB_URI is not set)
func TestRepositories_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	logger, _ := zap.NewDevelopment()

	client, err := NewClient(ctx, mongoURI, "translatar_test", logger)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Close(ctx)
	defer client.Database.Drop(ctx)

	if err := client.EnsureIndexes(ctx); err != nil {
		t.Fatalf("Failed to ensure indexes: %v", err)
	}

	conversations := NewConversationRepository(client.Database)
	translations := NewTranslationRepository(client.Database)
	users := NewUserRepository(client.Database)

	t.Run("ConversationLifecycle", func(t *testing.T) {
		conv := entities.NewConversation("user-1", "en", "es")
		if err := conversations.Create(ctx, conv); err != nil {
			t.Fatalf("Failed to create conversation: %v", err)
		}
		if conv.ID == "" {
			t.Fatal("Expected generated conversation ID")
		}

		if err := conversations.IncrementTranslationCount(ctx, conv.ID); err != nil {
			t.Fatalf("Failed to increment count: %v", err)
		}

		ended, err := conversations.End(ctx, conv.ID, time.Now())
		if err != nil || !ended {
			t.Fatalf("Expected first end to succeed, got %v, %v", ended, err)
		}

		ended, err = conversations.End(ctx, conv.ID, time.Now())
		if err != nil || ended {
			t.Fatalf("Expected second end to report no transition, got %v, %v", ended, err)
		}

		got, err := conversations.GetByID(ctx, conv.ID)
		if err != nil {
			t.Fatalf("Failed to get conversation: %v", err)
		}
		if got.IsActive || got.EndedAt == nil {
			t.Error("Expected conversation to be ended")
		}
		if got.TranslationCount != 1 {
			t.Errorf("Expected translation count 1, got %d", got.TranslationCount)
		}
	})

	t.Run("EndUnknown", func(t *testing.T) {
		_, err := conversations.End(ctx, "missing", time.Now())
		if !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DuplicateSequenceRejected", func(t *testing.T) {
		rec := &entities.TranslationRecord{
			ConversationID: "conv-dup",
			OriginalText:   "hello",
			TranslatedText: "hola",
			SourceLang:     "en",
			TargetLang:     "es",
			SequenceNumber: 1,
		}
		if err := translations.Insert(ctx, rec); err != nil {
			t.Fatalf("Failed to insert record: %v", err)
		}

		dup := *rec
		dup.ID = ""
		if err := translations.Insert(ctx, &dup); err == nil {
			t.Error("Expected duplicate sequence number to be rejected")
		}

		count, err := translations.CountByConversation(ctx, "conv-dup")
		if err != nil {
			t.Fatalf("Failed to count records: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 record, got %d", count)
		}
	})

	t.Run("LegacyRecordsDoNotCollide", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rec := &entities.TranslationRecord{
				OriginalText:   "hello",
				TranslatedText: "hola",
				SourceLang:     "en",
				TargetLang:     "es",
			}
			if err := translations.Insert(ctx, rec); err != nil {
				t.Fatalf("Failed to insert legacy record %d: %v", i, err)
			}
		}
	})

	t.Run("GetOrCreateUser", func(t *testing.T) {
		first, err := users.GetOrCreateByGoogleID(ctx, "google-1", "a@example.com")
		if err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
		second, err := users.GetOrCreateByGoogleID(ctx, "google-1", "a@example.com")
		if err != nil {
			t.Fatalf("Failed to get user: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("Expected same user ID, got %s and %s", first.ID, second.ID)
		}
	})
}
