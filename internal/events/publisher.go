// Package events publishes translation events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/usecase"
)

const TranslationCreated = "translation.created"

// TranslationEvent is the payload published for every persisted record
type TranslationEvent struct {
	EventType        string    `json:"event_type"`
	RecordID         string    `json:"record_id"`
	ConversationID   string    `json:"conversation_id,omitempty"`
	UserID           string    `json:"user_id,omitempty"`
	SequenceNumber   int       `json:"sequence_number,omitempty"`
	OriginalText     string    `json:"original_text"`
	TranslatedText   string    `json:"translated_text"`
	SourceLang       string    `json:"source_lang"`
	TargetLang       string    `json:"target_lang"`
	DetectedLanguage *string   `json:"detected_language,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// messageWriter is the part of *kafka.Writer used here
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// Publisher publishes translation events. When Kafka is disabled it only logs.
type Publisher struct {
	writer  messageWriter
	topic   string
	enabled bool
	logger  *zap.Logger
}

var _ usecase.TranslationPublisher = (*Publisher)(nil)

// New creates a new Kafka event publisher
func New(cfg Config, logger *zap.Logger) *Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info("Kafka disabled, using log-only mode")
		return &Publisher{topic: cfg.Topic, logger: logger}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{Dial: dialer.DialFunc},
	}

	logger.Info("Kafka publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic))

	return &Publisher{writer: writer, topic: cfg.Topic, enabled: true, logger: logger}
}

// PublishTranslation implements usecase.TranslationPublisher. Events are keyed
// by conversation id so one conversation stays ordered within a partition.
func (p *Publisher) PublishTranslation(ctx context.Context, record *entities.TranslationRecord) error {
	event := TranslationEvent{
		EventType:        TranslationCreated,
		RecordID:         record.ID,
		ConversationID:   record.ConversationID,
		UserID:           record.UserID,
		SequenceNumber:   record.SequenceNumber,
		OriginalText:     record.OriginalText,
		TranslatedText:   record.TranslatedText,
		SourceLang:       record.SourceLang,
		TargetLang:       record.TargetLang,
		DetectedLanguage: record.DetectedLanguage,
		Timestamp:        record.Timestamp,
	}

	key := record.ConversationID
	if key == "" {
		key = record.ID
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.logger.Debug("Publishing event",
		zap.String("topic", p.topic),
		zap.String("key", key),
		zap.String("eventType", TranslationCreated))

	if !p.enabled || p.writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(TranslationCreated)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write to Kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Error closing Kafka writer", zap.Error(err))
		return err
	}
	return nil
}
