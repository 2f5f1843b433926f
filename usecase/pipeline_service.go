package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
	"github.com/translatar/gateway/internal/metrics"
)

// ChunkState is the position of one chunk in the pipeline
type ChunkState string

const (
	ChunkReceived     ChunkState = "received"
	ChunkTranscribing ChunkState = "transcribing"
	ChunkEmpty        ChunkState = "empty"
	ChunkTranscribed  ChunkState = "transcribed"
	ChunkTranslating  ChunkState = "translating"
	ChunkTranslated   ChunkState = "translated"
	ChunkPersisting   ChunkState = "persisting"
	ChunkReplied      ChunkState = "replied"
	ChunkFailed       ChunkState = "failed"
)

// Tracker is the persistence side of the pipeline
type Tracker interface {
	Append(ctx context.Context, in AppendInput) (*entities.TranslationRecord, error)
	InsertLegacy(ctx context.Context, record *entities.TranslationRecord) error
}

// TranslationPublisher announces persisted records to other systems
type TranslationPublisher interface {
	PublishTranslation(ctx context.Context, record *entities.TranslationRecord) error
}

var _ Tracker = (*ConversationService)(nil)

// ChunkRequest is one decoded audio chunk with the connection's context
type ChunkRequest struct {
	Audio          []byte
	SourceLang     string
	TargetLang     string
	ConversationID string
	UserID         string
}

// ChunkResult is the reply for one chunk
type ChunkResult struct {
	OriginalText        string   `json:"original_text"`
	TranslatedText      string   `json:"translated_text"`
	ConversationID      *string  `json:"conversation_id"`
	DetectedLanguage    *string  `json:"detected_language,omitempty"`
	LanguageProbability *float64 `json:"language_probability,omitempty"`

	State  ChunkState                  `json:"-"`
	Record *entities.TranslationRecord `json:"-"`
	// Err is the failure behind an inline error reply
	Err error `json:"-"`
}

// PipelineConfig tunes the per-chunk pipeline
type PipelineConfig struct {
	UpstreamTimeout     time.Duration
	PersistenceTimeout  time.Duration
	ConfidenceThreshold float64
	AudioConfig         repositories.AudioConfig
}

// PipelineService runs transcription, translation and persistence for each chunk
type PipelineService struct {
	speechToText repositories.SpeechToText
	translator   repositories.Translator
	tracker      Tracker
	publisher    TranslationPublisher
	metrics      *metrics.Metrics
	config       PipelineConfig
	logger       *zap.Logger
}

// NewPipelineService creates a new pipeline service. publisher and m may be nil.
func NewPipelineService(
	stt repositories.SpeechToText,
	translator repositories.Translator,
	tracker Tracker,
	publisher TranslationPublisher,
	m *metrics.Metrics,
	config PipelineConfig,
	logger *zap.Logger,
) *PipelineService {
	return &PipelineService{
		speechToText: stt,
		translator:   translator,
		tracker:      tracker,
		publisher:    publisher,
		metrics:      m,
		config:       config,
		logger:       logger,
	}
}

// Process runs the full pipeline for one chunk and always returns a reply.
// Upstream failures become an inline error reply; persistence failures are
// logged and do not change the reply.
func (s *PipelineService) Process(ctx context.Context, req ChunkRequest) *ChunkResult {
	start := time.Now()
	logger := s.logger.With(zap.String("conversationID", req.ConversationID))

	result := &ChunkResult{State: ChunkReceived}
	if req.ConversationID != "" {
		id := req.ConversationID
		result.ConversationID = &id
	}

	result.State = ChunkTranscribing
	transcription, err := s.transcribe(ctx, req.Audio, req.SourceLang)
	if err != nil {
		return s.fail(result, err, start, logger)
	}
	result.DetectedLanguage = transcription.DetectedLanguage
	result.LanguageProbability = transcription.LanguageProbability

	text := strings.TrimSpace(transcription.Text)
	if text == "" {
		result.State = ChunkEmpty
		logger.Debug("Silent chunk", zap.Int("audioBytes", len(req.Audio)))
		s.metrics.ObserveChunk(metrics.OutcomeSilent, time.Since(start))
		result.State = ChunkReplied
		return result
	}
	result.State = ChunkTranscribed
	result.OriginalText = text

	sourceLang := s.effectiveSourceLang(req.SourceLang, transcription)
	if sourceLang != req.SourceLang {
		logger.Debug("Using detected source language",
			zap.String("declared", req.SourceLang),
			zap.String("detected", sourceLang))
	}

	result.State = ChunkTranslating
	translated, err := s.translate(ctx, text, sourceLang, req.TargetLang)
	if err != nil {
		result.OriginalText = ""
		return s.fail(result, err, start, logger)
	}
	result.State = ChunkTranslated
	result.TranslatedText = translated

	result.State = ChunkPersisting
	result.Record = s.persist(ctx, req, result, sourceLang, logger)

	s.metrics.ObserveChunk(metrics.OutcomeTranslated, time.Since(start))
	result.State = ChunkReplied
	return result
}

// effectiveSourceLang prefers a confidently detected language over the declared one
func (s *PipelineService) effectiveSourceLang(declared string, t *repositories.Transcription) string {
	if t.DetectedLanguage == nil || t.LanguageProbability == nil || *t.DetectedLanguage == "" {
		return declared
	}
	if *t.LanguageProbability > s.config.ConfidenceThreshold {
		return *t.DetectedLanguage
	}
	return declared
}

// transcribe recognizes audio in the chunk's declared language, falling back
// to the provider default when none is declared
func (s *PipelineService) transcribe(ctx context.Context, audio []byte, sourceLang string) (*repositories.Transcription, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.UpstreamTimeout)
	defer cancel()

	audioConfig := s.config.AudioConfig
	if sourceLang != "" {
		audioConfig.Language = sourceLang
	}
	return s.speechToText.Transcribe(ctx, audio, audioConfig)
}

func (s *PipelineService) translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.UpstreamTimeout)
	defer cancel()
	return s.translator.Translate(ctx, text, sourceLang, targetLang)
}

// persist stores the result and returns the record, or nil when the record was
// not written.
// It runs detached from ctx so a client hanging up mid-chunk still gets its
// translation recorded.
func (s *PipelineService) persist(ctx context.Context, req ChunkRequest, result *ChunkResult, sourceLang string, logger *zap.Logger) *entities.TranslationRecord {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PersistenceTimeout)
	defer cancel()

	var record *entities.TranslationRecord
	var err error
	if req.ConversationID != "" {
		record, err = s.tracker.Append(ctx, AppendInput{
			ConversationID:      req.ConversationID,
			OriginalText:        result.OriginalText,
			TranslatedText:      result.TranslatedText,
			SourceLang:          sourceLang,
			TargetLang:          req.TargetLang,
			DetectedLanguage:    result.DetectedLanguage,
			LanguageProbability: result.LanguageProbability,
			UserID:              req.UserID,
		})
	} else {
		record = &entities.TranslationRecord{
			ID:                  uuid.New().String(),
			OriginalText:        result.OriginalText,
			TranslatedText:      result.TranslatedText,
			SourceLang:          sourceLang,
			TargetLang:          req.TargetLang,
			DetectedLanguage:    result.DetectedLanguage,
			LanguageProbability: result.LanguageProbability,
			UserID:              req.UserID,
		}
		err = s.tracker.InsertLegacy(ctx, record)
	}
	switch {
	case errors.Is(err, ErrTranslationCountStale) && record != nil:
		s.metrics.PersistenceFailure()
		logger.Warn("Translation stored with stale conversation count",
			zap.String("recordID", record.ID),
			zap.Error(err))
	case err != nil:
		s.metrics.PersistenceFailure()
		logger.Warn("Failed to persist translation", zap.Error(err))
		return nil
	}

	logger.Debug("Translation persisted",
		zap.String("recordID", record.ID),
		zap.Int("sequenceNumber", record.SequenceNumber))

	if s.publisher != nil {
		if err := s.publisher.PublishTranslation(ctx, record); err != nil {
			logger.Warn("Failed to publish translation event", zap.Error(err))
		}
	}
	return record
}

func (s *PipelineService) fail(result *ChunkResult, err error, start time.Time, logger *zap.Logger) *ChunkResult {
	var upstream *repositories.UpstreamError
	if errors.As(err, &upstream) {
		s.metrics.UpstreamError(upstream.Service)
		result.TranslatedText = "Error: " + err.Error()
	} else {
		result.TranslatedText = "Processing error: " + err.Error()
	}
	logger.Error("Chunk processing failed",
		zap.String("state", string(result.State)),
		zap.Error(err))

	s.metrics.ObserveChunk(metrics.OutcomeFailed, time.Since(start))
	result.OriginalText = ""
	result.State = ChunkFailed
	result.Err = err
	return result
}
