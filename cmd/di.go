package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"
	"go.uber.org/zap"

	"github.com/translatar/gateway/adapters/llm"
	"github.com/translatar/gateway/adapters/memory"
	"github.com/translatar/gateway/adapters/mongo"
	"github.com/translatar/gateway/adapters/stt"
	"github.com/translatar/gateway/adapters/translation"
	"github.com/translatar/gateway/adapters/upstream"
	"github.com/translatar/gateway/domain/repositories"
	"github.com/translatar/gateway/internal/auth"
	"github.com/translatar/gateway/internal/config"
	"github.com/translatar/gateway/internal/events"
	"github.com/translatar/gateway/internal/metrics"
	"github.com/translatar/gateway/internal/websocket"
	"github.com/translatar/gateway/usecase"
)

const (
	databaseInitTimeout = 15 * time.Second
	jwksFetchTimeout    = 10 * time.Second
)

// storage bundles the repositories of the configured backend
type storage struct {
	conversations repositories.ConversationRepository
	translations  repositories.TranslationRepository
	users         repositories.UserRepository
	health        repositories.HealthChecker
}

// closers collects resources released on shutdown, in reverse order
type closers struct {
	fns []func(ctx context.Context) error
}

func (c *closers) add(fn func(ctx context.Context) error) {
	c.fns = append(c.fns, fn)
}

func (c *closers) closeAll(ctx context.Context, logger *zap.Logger) {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](ctx); err != nil {
			logger.Warn("Failed to release resource", zap.Error(err))
		}
	}
}

func setupDI(cfg *config.Config, logger *zap.Logger) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, &closers{})

	registerObservability(injector)
	registerStorage(injector)
	registerUpstreams(injector)
	registerServices(injector)
	registerRelay(injector)

	return injector
}

func registerObservability(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*prometheus.Registry, error) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg, nil
	})
	do.Provide(injector, func(i do.Injector) (*metrics.Metrics, error) {
		return metrics.New(do.MustInvoke[*prometheus.Registry](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*events.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		publisher := events.New(events.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Enabled: cfg.KafkaEnabled,
		}, do.MustInvoke[*zap.Logger](i))
		do.MustInvoke[*closers](i).add(func(context.Context) error { return publisher.Close() })
		return publisher, nil
	})
}

func registerStorage(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*storage, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if cfg.StorageBackend == config.StorageMemory {
			logger.Warn("Using in-memory storage; data is lost on restart")
			conversations := memory.NewConversationRepository()
			return &storage{
				conversations: conversations,
				translations:  memory.NewTranslationRepository(),
				users:         memory.NewUserRepository(),
				health:        conversations,
			}, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()

		client, err := mongo.NewClient(ctx, cfg.DatabaseURL, cfg.DatabaseName, logger)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			_ = client.Close(context.Background())
			return nil, err
		}
		do.MustInvoke[*closers](i).add(client.Close)

		return &storage{
			conversations: mongo.NewConversationRepository(client.Database),
			translations:  mongo.NewTranslationRepository(client.Database),
			users:         mongo.NewUserRepository(client.Database),
			health:        client,
		}, nil
	})
}

func registerUpstreams(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (repositories.SpeechToText, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if cfg.STTProvider == config.STTGoogle {
			client, err := stt.NewGoogleSpeechToText(context.Background(), cfg.STTLanguageCode, logger)
			if err != nil {
				return nil, err
			}
			do.MustInvoke[*closers](i).add(func(context.Context) error { return client.Close() })
			return client, nil
		}
		return stt.NewWhisperSpeechToText(upstream.NewClient("stt", cfg.STTURL, cfg.UpstreamTimeout, logger), logger), nil
	})

	do.Provide(injector, func(i do.Injector) (repositories.Translator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if cfg.TranslationProvider == config.TranslationLibre {
			client := upstream.NewClient("libretranslate", cfg.LibreTranslateURL, cfg.UpstreamTimeout, logger)
			return translation.NewLibreTranslator(client, cfg.LibreTranslateAPIKey), nil
		}
		client := upstream.NewClient("translation", cfg.TranslationURL, cfg.UpstreamTimeout, logger)
		return translation.NewServiceTranslator(client), nil
	})

	// Summaries are optional; a nil summarizer disables the route.
	do.Provide(injector, func(i do.Injector) (repositories.Summarizer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.SummariesEnabled() {
			return nil, nil
		}
		return llm.NewGeminiSummarizer(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, do.MustInvoke[*zap.Logger](i))
	})
}

func registerServices(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*auth.Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return auth.NewManager(cfg.JWTSecretKey, cfg.JWTExpiration), nil
	})

	do.Provide(injector, func(i do.Injector) (*usecase.ConversationService, error) {
		s := do.MustInvoke[*storage](i)
		return usecase.NewConversationService(s.conversations, s.translations, do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*usecase.PipelineService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return usecase.NewPipelineService(
			do.MustInvoke[repositories.SpeechToText](i),
			do.MustInvoke[repositories.Translator](i),
			do.MustInvoke[*usecase.ConversationService](i),
			do.MustInvoke[*events.Publisher](i),
			do.MustInvoke[*metrics.Metrics](i),
			usecase.PipelineConfig{
				UpstreamTimeout:     cfg.UpstreamTimeout,
				PersistenceTimeout:  cfg.PersistenceTimeout,
				ConfidenceThreshold: cfg.LanguageConfidenceThreshold,
				// WAV headers carry the sample rate
				AudioConfig: repositories.AudioConfig{Encoding: "WAV"},
			},
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*usecase.SummaryService, error) {
		summarizer := do.MustInvoke[repositories.Summarizer](i)
		if summarizer == nil {
			return nil, nil
		}
		return usecase.NewSummaryService(do.MustInvoke[*usecase.ConversationService](i), summarizer, do.MustInvoke[*zap.Logger](i)), nil
	})

	// Google login needs a client id to check the token audience against.
	do.Provide(injector, func(i do.Injector) (*usecase.AuthService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.GoogleClientID == "" {
			return nil, nil
		}
		logger := do.MustInvoke[*zap.Logger](i)
		keys, err := auth.NewJWKSCache(context.Background(), cfg.GoogleJWKSURL, cfg.JWKSCacheTTL, &http.Client{Timeout: jwksFetchTimeout}, logger)
		if err != nil {
			return nil, err
		}
		do.MustInvoke[*closers](i).add(func(context.Context) error {
			keys.Close()
			return nil
		})
		return usecase.NewAuthService(
			auth.NewGoogleVerifier(keys, cfg.GoogleClientID),
			do.MustInvoke[*auth.Manager](i),
			do.MustInvoke[*storage](i).users,
			logger,
		), nil
	})
}

func registerRelay(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*websocket.Hub, error) {
		return websocket.NewHub(do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*websocket.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return websocket.NewHandler(
			do.MustInvoke[*websocket.Hub](i),
			do.MustInvoke[*auth.Manager](i),
			do.MustInvoke[*usecase.PipelineService](i),
			do.MustInvoke[*usecase.ConversationService](i),
			do.MustInvoke[*metrics.Metrics](i),
			websocket.HandlerConfig{
				MaxFrameBytes:     cfg.MaxFrameBytes,
				DefaultSourceLang: cfg.DefaultSourceLang,
				DefaultTargetLang: cfg.DefaultTargetLang,
				EndTimeout:        cfg.PersistenceTimeout,
			},
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*websocket.ConversationSweeper, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return websocket.NewConversationSweeper(
			do.MustInvoke[*usecase.ConversationService](i),
			do.MustInvoke[*websocket.Hub](i),
			cfg.ConversationSweepInterval,
			cfg.StaleConversationAge,
			do.MustInvoke[*metrics.Metrics](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

func mustInvoke[T any](injector do.Injector, logger *zap.Logger) T {
	v, err := do.Invoke[T](injector)
	if err != nil {
		logger.Fatal("Failed to build dependency", zap.Error(err))
	}
	return v
}
