package config

import (
	"fmt"
	"time"

	"github.com/translatar/gateway/domain/entities"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"

	STTWhisper = "whisper"
	STTGoogle  = "google"

	TranslationService = "service"
	TranslationLibre   = "libretranslate"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	JWTSecretKey   string
	JWTExpiration  time.Duration
	GoogleClientID string
	GoogleJWKSURL  string
	JWKSCacheTTL   time.Duration

	StorageBackend string
	DatabaseURL    string
	DatabaseName   string

	STTProvider          string
	STTURL               string
	STTLanguageCode      string
	TranslationProvider  string
	TranslationURL       string
	LibreTranslateURL    string
	LibreTranslateAPIKey string
	GeminiAPIKey         string
	GeminiModel          string

	UpstreamTimeout             time.Duration
	PersistenceTimeout          time.Duration
	LanguageConfidenceThreshold float64
	DefaultSourceLang           string
	DefaultTargetLang           string
	MaxFrameBytes               int64

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	StaleConversationAge      time.Duration
	ConversationSweepInterval time.Duration
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}

	if err := oneOf("STORAGE_BACKEND", c.StorageBackend, StorageMongo, StorageMemory); err != nil {
		return err
	}
	if err := oneOf("STT_PROVIDER", c.STTProvider, STTWhisper, STTGoogle); err != nil {
		return err
	}
	if err := oneOf("TRANSLATION_PROVIDER", c.TranslationProvider, TranslationService, TranslationLibre); err != nil {
		return err
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{name: "JWT_EXPIRE_MINUTES", value: c.JWTExpiration},
		{name: "JWKS_CACHE_TTL", value: c.JWKSCacheTTL},
		{name: "UPSTREAM_TIMEOUT", value: c.UpstreamTimeout},
		{name: "PERSISTENCE_TIMEOUT", value: c.PersistenceTimeout},
		{name: "STALE_CONVERSATION_AGE", value: c.StaleConversationAge},
		{name: "CONVERSATION_SWEEP_INTERVAL", value: c.ConversationSweepInterval},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	if c.LanguageConfidenceThreshold < 0 || c.LanguageConfidenceThreshold > 1 {
		return fmt.Errorf("LANGUAGE_CONFIDENCE_THRESHOLD must be between 0 and 1, got %v", c.LanguageConfidenceThreshold)
	}
	if c.MaxFrameBytes <= 4 {
		return fmt.Errorf("MAX_FRAME_BYTES must be greater than 4, got %d", c.MaxFrameBytes)
	}
	if !entities.ValidLanguageCode(c.DefaultSourceLang) {
		return fmt.Errorf("DEFAULT_SOURCE_LANG is invalid: %q", c.DefaultSourceLang)
	}
	if !entities.ValidLanguageCode(c.DefaultTargetLang) {
		return fmt.Errorf("DEFAULT_TARGET_LANG is invalid: %q", c.DefaultTargetLang)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	fields := []requiredEnvField{
		{name: "PORT", value: c.Port},
		{name: "JWT_SECRET_KEY", value: c.JWTSecretKey},
	}
	if c.StorageBackend == StorageMongo {
		fields = append(fields,
			requiredEnvField{name: "DATABASE_URL", value: c.DatabaseURL},
			requiredEnvField{name: "DATABASE_NAME", value: c.DatabaseName},
		)
	}
	if c.STTProvider == STTWhisper {
		fields = append(fields, requiredEnvField{name: "STT_URL", value: c.STTURL})
	}
	switch c.TranslationProvider {
	case TranslationService:
		fields = append(fields, requiredEnvField{name: "TRANSLATION_URL", value: c.TranslationURL})
	case TranslationLibre:
		fields = append(fields, requiredEnvField{name: "LIBRETRANSLATE_URL", value: c.LibreTranslateURL})
	}
	if c.KafkaEnabled {
		fields = append(fields, requiredEnvField{name: "KAFKA_TOPIC", value: c.KafkaTopic})
	}
	return fields
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", name, allowed, value)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SummariesEnabled reports whether a summarizer can be constructed
func (c *Config) SummariesEnabled() bool {
	return c.GeminiAPIKey != ""
}
