package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Env:                         "development",
		Port:                        "8080",
		JWTSecretKey:                "secret",
		JWTExpiration:               time.Hour,
		JWKSCacheTTL:                15 * time.Minute,
		StorageBackend:              StorageMemory,
		STTProvider:                 STTWhisper,
		STTURL:                      "http://stt:9000",
		TranslationProvider:         TranslationService,
		TranslationURL:              "http://translation:9001",
		UpstreamTimeout:             30 * time.Second,
		PersistenceTimeout:          5 * time.Second,
		LanguageConfidenceThreshold: 0.3,
		DefaultSourceLang:           "en",
		DefaultTargetLang:           "es",
		MaxFrameBytes:               1 << 20,
		KafkaTopic:                  "translations",
		StaleConversationAge:        12 * time.Hour,
		ConversationSweepInterval:   30 * time.Minute,
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing secret", func(c *Config) { c.JWTSecretKey = "" }},
		{"unknown storage", func(c *Config) { c.StorageBackend = "postgres" }},
		{"mongo without url", func(c *Config) { c.StorageBackend = StorageMongo; c.DatabaseName = "db" }},
		{"unknown stt", func(c *Config) { c.STTProvider = "vosk" }},
		{"whisper without url", func(c *Config) { c.STTURL = "" }},
		{"libretranslate without url", func(c *Config) { c.TranslationProvider = TranslationLibre }},
		{"zero upstream timeout", func(c *Config) { c.UpstreamTimeout = 0 }},
		{"negative persistence timeout", func(c *Config) { c.PersistenceTimeout = -time.Second }},
		{"threshold above one", func(c *Config) { c.LanguageConfidenceThreshold = 1.5 }},
		{"tiny frames", func(c *Config) { c.MaxFrameBytes = 4 }},
		{"bad source lang", func(c *Config) { c.DefaultSourceLang = "English" }},
		{"kafka without brokers", func(c *Config) { c.KafkaEnabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.JWTExpiration != time.Hour {
		t.Errorf("expected 60 minute token lifetime, got %s", cfg.JWTExpiration)
	}
	if cfg.JWKSCacheTTL != 15*time.Minute {
		t.Errorf("expected 15m JWKS TTL, got %s", cfg.JWKSCacheTTL)
	}
	if cfg.UpstreamTimeout != 30*time.Second || cfg.PersistenceTimeout != 5*time.Second {
		t.Errorf("unexpected timeouts %s / %s", cfg.UpstreamTimeout, cfg.PersistenceTimeout)
	}
	if cfg.LanguageConfidenceThreshold != 0.3 {
		t.Errorf("expected threshold 0.3, got %v", cfg.LanguageConfidenceThreshold)
	}
	if cfg.DefaultSourceLang != "en" || cfg.DefaultTargetLang != "es" {
		t.Errorf("unexpected default languages %s/%s", cfg.DefaultSourceLang, cfg.DefaultTargetLang)
	}
	if cfg.StorageBackend != StorageMongo || cfg.DatabaseName != "translatar_db" {
		t.Errorf("unexpected storage defaults %s/%s", cfg.StorageBackend, cfg.DatabaseName)
	}
	if cfg.KafkaEnabled {
		t.Error("kafka should be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("UPSTREAM_TIMEOUT", "10s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Errorf("expected 10s, got %s", cfg.UpstreamTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET_KEY is missing")
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := LoadDotEnv(t.TempDir() + "/.env"); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode")
	}
	cfg.Env = "production"
	if cfg.IsDevelopment() {
		t.Fatal("expected non-development mode")
	}
}
