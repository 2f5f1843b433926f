package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env                         string        `env:"ENV" envDefault:"production"`
	Port                        string        `env:"PORT" envDefault:"8080"`
	LogLevel                    string        `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecretKey                string        `env:"JWT_SECRET_KEY,required"`
	JWTExpireMinutes            int           `env:"JWT_EXPIRE_MINUTES" envDefault:"60"`
	GoogleClientID              string        `env:"GOOGLE_CLIENT_ID"`
	GoogleJWKSURL               string        `env:"GOOGLE_JWKS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	JWKSCacheTTL                time.Duration `env:"JWKS_CACHE_TTL" envDefault:"15m"`
	StorageBackend              string        `env:"STORAGE_BACKEND" envDefault:"mongo"`
	DatabaseURL                 string        `env:"DATABASE_URL" envDefault:"mongodb://mongodb:27017"`
	DatabaseName                string        `env:"DATABASE_NAME" envDefault:"translatar_db"`
	STTProvider                 string        `env:"STT_PROVIDER" envDefault:"whisper"`
	STTURL                      string        `env:"STT_URL" envDefault:"http://stt:9000"`
	STTLanguageCode             string        `env:"STT_LANGUAGE_CODE" envDefault:"en-US"`
	TranslationProvider         string        `env:"TRANSLATION_PROVIDER" envDefault:"service"`
	TranslationURL              string        `env:"TRANSLATION_URL" envDefault:"http://translation:9001"`
	LibreTranslateURL           string        `env:"LIBRETRANSLATE_URL" envDefault:"http://libretranslate:5000"`
	LibreTranslateAPIKey        string        `env:"LIBRETRANSLATE_API_KEY"`
	GeminiAPIKey                string        `env:"GEMINI_API_KEY"`
	GeminiModel                 string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	UpstreamTimeout             time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	PersistenceTimeout          time.Duration `env:"PERSISTENCE_TIMEOUT" envDefault:"5s"`
	LanguageConfidenceThreshold float64       `env:"LANGUAGE_CONFIDENCE_THRESHOLD" envDefault:"0.3"`
	DefaultSourceLang           string        `env:"DEFAULT_SOURCE_LANG" envDefault:"en"`
	DefaultTargetLang           string        `env:"DEFAULT_TARGET_LANG" envDefault:"es"`
	MaxFrameBytes               int64         `env:"MAX_FRAME_BYTES" envDefault:"1048576"`
	KafkaEnabled                bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers                []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic                  string        `env:"KAFKA_TOPIC" envDefault:"translations"`
	StaleConversationAge        time.Duration `env:"STALE_CONVERSATION_AGE" envDefault:"12h"`
	ConversationSweepInterval   time.Duration `env:"CONVERSATION_SWEEP_INTERVAL" envDefault:"30m"`
}

// LoadDotEnv loads variables from path into the environment. A missing file
// is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load parses the environment into a validated Config
func Load() (*Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &Config{
		Env:                         raw.Env,
		Port:                        raw.Port,
		LogLevel:                    raw.LogLevel,
		JWTSecretKey:                raw.JWTSecretKey,
		JWTExpiration:               time.Duration(raw.JWTExpireMinutes) * time.Minute,
		GoogleClientID:              raw.GoogleClientID,
		GoogleJWKSURL:               raw.GoogleJWKSURL,
		JWKSCacheTTL:                raw.JWKSCacheTTL,
		StorageBackend:              raw.StorageBackend,
		DatabaseURL:                 raw.DatabaseURL,
		DatabaseName:                raw.DatabaseName,
		STTProvider:                 raw.STTProvider,
		STTURL:                      raw.STTURL,
		STTLanguageCode:             raw.STTLanguageCode,
		TranslationProvider:         raw.TranslationProvider,
		TranslationURL:              raw.TranslationURL,
		LibreTranslateURL:           raw.LibreTranslateURL,
		LibreTranslateAPIKey:        raw.LibreTranslateAPIKey,
		GeminiAPIKey:                raw.GeminiAPIKey,
		GeminiModel:                 raw.GeminiModel,
		UpstreamTimeout:             raw.UpstreamTimeout,
		PersistenceTimeout:          raw.PersistenceTimeout,
		LanguageConfidenceThreshold: raw.LanguageConfidenceThreshold,
		DefaultSourceLang:           raw.DefaultSourceLang,
		DefaultTargetLang:           raw.DefaultTargetLang,
		MaxFrameBytes:               raw.MaxFrameBytes,
		KafkaEnabled:                raw.KafkaEnabled,
		KafkaBrokers:                raw.KafkaBrokers,
		KafkaTopic:                  raw.KafkaTopic,
		StaleConversationAge:        raw.StaleConversationAge,
		ConversationSweepInterval:   raw.ConversationSweepInterval,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
