package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
	"github.com/translatar/gateway/internal/auth"
	"github.com/translatar/gateway/usecase"
)

// SilentHealthPath is the health route excluded from request logging
const SilentHealthPath = "/health/silent"

// maxUploadSize caps process-audio request bodies
const maxUploadSize = "10M"

// TokenVerifier resolves an application access token to a user id
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// LoginService exchanges a Google ID token for an application token
type LoginService interface {
	LoginWithGoogle(ctx context.Context, idToken string) (string, *entities.User, error)
}

// ConversationStore is the conversation API surface
type ConversationStore interface {
	Start(ctx context.Context, userID, sourceLang, targetLang string) (string, error)
	EndOwned(ctx context.Context, conversationID, userID string) error
	GetWithRecords(ctx context.Context, conversationID, userID string) (*entities.ConversationDetail, error)
	List(ctx context.Context, userID string, limit int, includeActive bool) ([]*entities.Conversation, error)
	Delete(ctx context.Context, conversationID, userID string) error
}

// UserDirectory looks up user documents
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*entities.User, error)
}

// AudioProcessor runs one uploaded audio file through the pipeline
type AudioProcessor interface {
	Process(ctx context.Context, req usecase.ChunkRequest) *usecase.ChunkResult
}

// ConversationSummarizer summarizes a conversation's original texts
type ConversationSummarizer interface {
	Summarize(ctx context.Context, conversationID, userID, length string) (string, error)
}

var (
	_ TokenVerifier          = (*auth.Manager)(nil)
	_ LoginService           = (*usecase.AuthService)(nil)
	_ ConversationStore      = (*usecase.ConversationService)(nil)
	_ ConversationSummarizer = (*usecase.SummaryService)(nil)
	_ UserDirectory          = (repositories.UserRepository)(nil)
	_ AudioProcessor         = (*usecase.PipelineService)(nil)
)

// Dependencies are the services behind the routes. Login and Summaries may
// be nil when Google login or summaries are not configured.
type Dependencies struct {
	Health        repositories.HealthChecker
	Tokens        TokenVerifier
	Login         LoginService
	Conversations ConversationStore
	Summaries     ConversationSummarizer
	Users         UserDirectory
	Audio         AudioProcessor
	Gatherer      prometheus.Gatherer
	Relay         echo.HandlerFunc
	Logger        *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	h := &handlers{
		health:        deps.Health,
		login:         deps.Login,
		conversations: deps.Conversations,
		summaries:     deps.Summaries,
		users:         deps.Users,
		audio:         deps.Audio,
		logger:        deps.Logger,
	}

	// Health check
	e.GET("/health", h.healthCheck)
	e.GET(SilentHealthPath, h.healthCheck)

	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	api.GET("/health", h.healthCheck)
	api.POST("/auth/google/login", h.googleLogin)

	bearer := BearerAuth(deps.Tokens, deps.Logger)
	api.GET("/users/me", h.currentUser, bearer)
	api.POST("/process-audio", h.processAudio, bearer, middleware.BodyLimit(maxUploadSize))

	conversations := api.Group("/conversations", bearer)
	conversations.GET("", h.listConversations)
	conversations.POST("/start", h.startConversation)
	conversations.POST("/:id/end", h.endConversation)
	conversations.GET("/:id", h.getConversation)
	conversations.DELETE("/:id", h.deleteConversation)
	conversations.GET("/:id/summary", h.summarizeConversation)

	// Relay WebSocket. Authentication happens on the first frame.
	if deps.Relay != nil {
		e.GET("/ws", deps.Relay)
	}
}

func notConfigured(c echo.Context, what string) error {
	return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:   "not_configured",
		Message: what + " is not configured",
	})
}
