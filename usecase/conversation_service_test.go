package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/translatar/gateway/adapters/memory"
	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
)

func newConversationService(t *testing.T) (*ConversationService, *memory.ConversationRepository, *memory.TranslationRepository) {
	conversations := memory.NewConversationRepository()
	translations := memory.NewTranslationRepository()
	return NewConversationService(conversations, translations, zaptest.NewLogger(t)), conversations, translations
}

func TestConversationService_StartAppendEnd(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newConversationService(t)

	id, err := svc.Start(ctx, "user-1", "en", "es")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	for i := 1; i <= 3; i++ {
		record, err := svc.Append(ctx, AppendInput{
			ConversationID: id,
			OriginalText:   "hello",
			TranslatedText: "hola",
			SourceLang:     "en",
			TargetLang:     "es",
			UserID:         "user-1",
		})
		require.NoError(t, err)
		require.Equal(t, i, record.SequenceNumber)
	}

	detail, err := svc.GetWithRecords(ctx, id, "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, detail.Conversation.TranslationCount)
	require.True(t, detail.Conversation.IsActive)
	require.Len(t, detail.Translations, 3)
	for i, r := range detail.Translations {
		require.Equal(t, i+1, r.SequenceNumber)
	}

	ok, err := svc.End(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	detail, err = svc.GetWithRecords(ctx, id, "")
	require.NoError(t, err)
	require.False(t, detail.Conversation.IsActive)
	require.NotNil(t, detail.Conversation.EndedAt)
}

func TestConversationService_EndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newConversationService(t)

	id, err := svc.Start(ctx, "user-1", "en", "es")
	require.NoError(t, err)

	ok, err := svc.End(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.End(ctx, id)
	require.NoError(t, err, "double end is a successful no-op")
	require.True(t, ok)

	ok, err = svc.End(ctx, "missing")
	require.ErrorIs(t, err, repositories.ErrNotFound)
	require.False(t, ok)
}

func TestConversationService_AppendExternalID(t *testing.T) {
	ctx := context.Background()
	svc, _, translations := newConversationService(t)

	record, err := svc.Append(ctx, AppendInput{
		ConversationID: "external-1",
		OriginalText:   "hello",
		TranslatedText: "hola",
		SourceLang:     "en",
		TargetLang:     "es",
	})
	require.NoError(t, err)
	require.Equal(t, 1, record.SequenceNumber)

	count, err := translations.CountByConversation(ctx, "external-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestConversationService_GetWithRecordsOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newConversationService(t)

	id, err := svc.Start(ctx, "user-1", "en", "es")
	require.NoError(t, err)

	_, err = svc.GetWithRecords(ctx, id, "user-2")
	require.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = svc.GetWithRecords(ctx, "missing", "")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestConversationService_ListAndActive(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newConversationService(t)

	base := time.Now()
	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Minute
		svc.now = func() time.Time { return base.Add(offset) }
		id, err := svc.Start(ctx, "user-1", "en", "es")
		require.NoError(t, err)
		if i < 2 {
			_, err = svc.End(ctx, id)
			require.NoError(t, err)
		}
	}

	ended, err := svc.List(ctx, "user-1", 0, false)
	require.NoError(t, err)
	require.Len(t, ended, 2)
	require.True(t, ended[0].StartedAt.After(ended[1].StartedAt))

	all, err := svc.List(ctx, "user-1", 500, true)
	require.NoError(t, err)
	require.Len(t, all, 3)

	active, err := svc.ActiveFor(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, active.IsActive)

	_, err = svc.ActiveFor(ctx, "user-2")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestConversationService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, conversations, translations := newConversationService(t)

	id, err := svc.Start(ctx, "user-1", "en", "es")
	require.NoError(t, err)
	_, err = svc.Append(ctx, AppendInput{ConversationID: id, OriginalText: "hi", SourceLang: "en", TargetLang: "es"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, id, "user-2"), repositories.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, id, "user-1"))
	_, err = conversations.GetByID(ctx, id)
	require.ErrorIs(t, err, repositories.ErrNotFound)
	count, err := translations.CountByConversation(ctx, id)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestConversationService_Resume(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newConversationService(t)

	id, err := svc.Start(ctx, "user-1", "en", "es")
	require.NoError(t, err)

	known, err := svc.Resume(ctx, id, "user-1")
	require.NoError(t, err)
	require.True(t, known)

	_, err = svc.Resume(ctx, id, "user-2")
	require.ErrorIs(t, err, repositories.ErrConversationInUse)

	_, err = svc.Resume(ctx, id, "")
	require.ErrorIs(t, err, repositories.ErrConversationInUse)

	known, err = svc.Resume(ctx, "external", "user-1")
	require.NoError(t, err)
	require.False(t, known)
}

func TestConversationService_EndStale(t *testing.T) {
	ctx := context.Background()
	svc, conversations, _ := newConversationService(t)

	old := entities.NewConversation("user-1", "en", "es")
	old.StartedAt = time.Now().Add(-24 * time.Hour)
	require.NoError(t, conversations.Create(ctx, old))

	held := entities.NewConversation("user-2", "en", "es")
	held.StartedAt = time.Now().Add(-24 * time.Hour)
	require.NoError(t, conversations.Create(ctx, held))

	fresh, err := svc.Start(ctx, "user-3", "en", "es")
	require.NoError(t, err)

	ended, err := svc.EndStale(ctx, time.Now().Add(-12*time.Hour), func(id string) bool { return id == held.ID })
	require.NoError(t, err)
	require.Equal(t, []string{old.ID}, ended)

	for id, wantActive := range map[string]bool{old.ID: false, held.ID: true, fresh: true} {
		c, err := conversations.GetByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, wantActive, c.IsActive, id)
	}
}

func TestConversationService_InsertLegacy(t *testing.T) {
	ctx := context.Background()
	svc, _, translations := newConversationService(t)

	record := &entities.TranslationRecord{OriginalText: "hi", SourceLang: "en", TargetLang: "es"}
	require.NoError(t, svc.InsertLegacy(ctx, record))
	require.Len(t, translations.Legacy(), 1)
	require.False(t, record.Timestamp.IsZero())
}

func TestConversationService_EndOwned(t *testing.T) {
	ctx := context.Background()
	svc, conversations, _ := newConversationService(t)

	id, err := svc.Start(ctx, "user-1", "en", "es")
	require.NoError(t, err)

	require.ErrorIs(t, svc.EndOwned(ctx, id, "user-2"), repositories.ErrNotFound)
	require.ErrorIs(t, svc.EndOwned(ctx, "missing", "user-1"), repositories.ErrNotFound)

	require.NoError(t, svc.EndOwned(ctx, id, "user-1"))
	require.NoError(t, svc.EndOwned(ctx, id, "user-1"))

	conversation, err := conversations.GetByID(ctx, id)
	require.NoError(t, err)
	require.False(t, conversation.IsActive)
}

// flakyCounter fails the first failures counter increments
type flakyCounter struct {
	*memory.ConversationRepository
	mu       sync.Mutex
	failures int
}

func (f *flakyCounter) IncrementTranslationCount(ctx context.Context, id string) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("write conflict")
	}
	f.mu.Unlock()
	return f.ConversationRepository.IncrementTranslationCount(ctx, id)
}

func newFlakyConversationService(t *testing.T, failures int) (*ConversationService, *flakyCounter, *memory.TranslationRepository) {
	conversations := &flakyCounter{ConversationRepository: memory.NewConversationRepository(), failures: failures}
	translations := memory.NewTranslationRepository()
	svc := NewConversationService(conversations, translations, zaptest.NewLogger(t))
	svc.backoff = time.Millisecond
	return svc, conversations, translations
}

func TestConversationService_AppendRetriesCountIncrement(t *testing.T) {
	ctx := context.Background()
	svc, conversations, translations := newFlakyConversationService(t, incrementAttempts-1)

	id, err := svc.Start(ctx, "user-1", "en", "es")
	require.NoError(t, err)

	record, err := svc.Append(ctx, AppendInput{ConversationID: id, OriginalText: "hello", UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, 1, record.SequenceNumber)

	conversation, err := conversations.GetByID(ctx, id)
	require.NoError(t, err)
	count, err := translations.CountByConversation(ctx, id)
	require.NoError(t, err)
	require.Equal(t, count, conversation.TranslationCount)
}

func TestConversationService_AppendReportsStaleCount(t *testing.T) {
	ctx := context.Background()
	svc, _, translations := newFlakyConversationService(t, incrementAttempts)

	id, err := svc.Start(ctx, "user-1", "en", "es")
	require.NoError(t, err)

	record, err := svc.Append(ctx, AppendInput{ConversationID: id, OriginalText: "hello", UserID: "user-1"})
	require.ErrorIs(t, err, ErrTranslationCountStale)
	require.NotNil(t, record)

	count, err := translations.CountByConversation(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
