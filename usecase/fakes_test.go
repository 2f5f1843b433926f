package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
)

type fakeSTT struct {
	transcribe func(ctx context.Context, audio []byte) (*repositories.Transcription, error)

	mu      sync.Mutex
	configs []repositories.AudioConfig
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) (*repositories.Transcription, error) {
	f.mu.Lock()
	f.configs = append(f.configs, config)
	f.mu.Unlock()
	return f.transcribe(ctx, audio)
}

func textSTT(text string) *fakeSTT {
	return &fakeSTT{transcribe: func(ctx context.Context, audio []byte) (*repositories.Transcription, error) {
		return &repositories.Transcription{Text: text}, nil
	}}
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sourceLang+">"+targetLang+":"+text)
	if f.err != nil {
		return "", f.err
	}
	return "[" + targetLang + "] " + text, nil
}

type fakeTracker struct {
	mu        sync.Mutex
	appended  []AppendInput
	legacy    []*entities.TranslationRecord
	appendErr error
}

func (f *fakeTracker) Append(ctx context.Context, in AppendInput) (*entities.TranslationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appended = append(f.appended, in)
	return &entities.TranslationRecord{
		ID:             "rec",
		ConversationID: in.ConversationID,
		OriginalText:   in.OriginalText,
		SequenceNumber: len(f.appended),
	}, nil
}

func (f *fakeTracker) InsertLegacy(ctx context.Context, record *entities.TranslationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.legacy = append(f.legacy, record)
	return nil
}

type fakePublisher struct {
	published []*entities.TranslationRecord
	err       error
}

func (f *fakePublisher) PublishTranslation(ctx context.Context, record *entities.TranslationRecord) error {
	f.published = append(f.published, record)
	return f.err
}

var errStorageDown = errors.New("storage down")
