package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/entities"
	"github.com/translatar/gateway/domain/repositories"
	"github.com/translatar/gateway/usecase"
)

const healthTimeout = 2 * time.Second

type handlers struct {
	health        repositories.HealthChecker
	login         LoginService
	conversations ConversationStore
	summaries     ConversationSummarizer
	users         UserDirectory
	audio         AudioProcessor
	logger        *zap.Logger
}

func (h *handlers) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:         "error",
			DatabaseStatus: "disconnected",
		})
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		DatabaseStatus: "connected",
	})
}

func (h *handlers) googleLogin(c echo.Context) error {
	if h.login == nil {
		return notConfigured(c, "Google login")
	}

	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Google ID token is required",
		})
	}

	token, _, err := h.login.LoginWithGoogle(c.Request().Context(), req.Token)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "authentication_failed",
				Message: "Invalid Google ID token",
			})
		}
		h.logger.Error("Google login failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Login failed",
		})
	}

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (h *handlers) startConversation(c echo.Context) error {
	var req StartConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.SourceLang == "" {
		req.SourceLang = "en"
	}
	if req.TargetLang == "" {
		req.TargetLang = "es"
	}
	if !entities.ValidLanguageCode(req.SourceLang) || !entities.ValidLanguageCode(req.TargetLang) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_language",
			Message: "source_lang and target_lang must be language codes",
		})
	}

	conversationID, err := h.conversations.Start(c.Request().Context(), userIDFrom(c), req.SourceLang, req.TargetLang)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, StartConversationResponse{ConversationID: conversationID})
}

func (h *handlers) endConversation(c echo.Context) error {
	if err := h.conversations.EndOwned(c.Request().Context(), c.Param("id"), userIDFrom(c)); err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ended"})
}

func (h *handlers) getConversation(c echo.Context) error {
	detail, err := h.conversations.GetWithRecords(c.Request().Context(), c.Param("id"), userIDFrom(c))
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *handlers) listConversations(c echo.Context) error {
	limit := usecase.DefaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
		}
		limit = n
	}

	includeActive := true
	if raw := c.QueryParam("include_active"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_include_active",
				Message: "include_active must be a boolean",
			})
		}
		includeActive = b
	}

	conversations, err := h.conversations.List(c.Request().Context(), userIDFrom(c), limit, includeActive)
	if err != nil {
		return h.storeError(c, err)
	}
	if conversations == nil {
		conversations = []*entities.Conversation{}
	}
	return c.JSON(http.StatusOK, ConversationListResponse{Conversations: conversations})
}

func (h *handlers) deleteConversation(c echo.Context) error {
	if err := h.conversations.Delete(c.Request().Context(), c.Param("id"), userIDFrom(c)); err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "deleted"})
}

func (h *handlers) summarizeConversation(c echo.Context) error {
	if h.summaries == nil {
		return notConfigured(c, "Summarization")
	}

	length := c.QueryParam("length")
	switch length {
	case "short", "medium", "long":
	default:
		length = "medium"
	}

	summary, err := h.summaries.Summarize(c.Request().Context(), c.Param("id"), userIDFrom(c), length)
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrEmptyConversation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_conversation",
			Message: "Conversation has no translations to summarize",
		})
	case repositories.IsUpstream(err):
		h.logger.Error("Summarizer failed", zap.String("conversationID", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "summarizer_unavailable",
			Message: "Summarization service is unavailable",
		})
	default:
		return h.storeError(c, err)
	}

	return c.JSON(http.StatusOK, SummaryResponse{
		ConversationID: c.Param("id"),
		Length:         length,
		Summary:        summary,
	})
}

func (h *handlers) currentUser(c echo.Context) error {
	if h.users == nil {
		return notConfigured(c, "User lookup")
	}

	user, err := h.users.GetByID(c.Request().Context(), userIDFrom(c))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "User not found",
			})
		}
		h.logger.Error("User lookup failed", zap.String("userID", userIDFrom(c)), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
	return c.JSON(http.StatusOK, user)
}

// processAudio transcribes and translates one uploaded audio file. The result
// is stored in the caller's flat translation log.
func (h *handlers) processAudio(c echo.Context) error {
	if h.audio == nil {
		return notConfigured(c, "Audio processing")
	}

	header, err := c.FormFile("audio_file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "audio_file is required",
		})
	}
	file, err := header.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "audio_file could not be read",
		})
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "audio_file could not be read",
		})
	}

	sourceLang := c.FormValue("source_lang")
	if sourceLang == "" {
		sourceLang = "en"
	}
	targetLang := c.FormValue("target_lang")
	if targetLang == "" {
		targetLang = "es"
	}
	if !entities.ValidLanguageCode(sourceLang) || !entities.ValidLanguageCode(targetLang) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_language",
			Message: "source_lang and target_lang must be language codes",
		})
	}

	h.logger.Info("Processing uploaded audio",
		zap.String("userID", userIDFrom(c)),
		zap.Int("audioBytes", len(audio)),
		zap.String("sourceLang", sourceLang),
		zap.String("targetLang", targetLang))

	result := h.audio.Process(c.Request().Context(), usecase.ChunkRequest{
		Audio:      audio,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		UserID:     userIDFrom(c),
	})
	switch {
	case result.Err != nil && repositories.IsUpstream(result.Err):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: result.Err.Error(),
		})
	case result.Err != nil:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "processing_error",
			Message: result.Err.Error(),
		})
	case result.OriginalText == "":
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "no_speech",
			Message: "Transcription failed (no speech detected)",
		})
	}

	return c.JSON(http.StatusOK, TranslationResponse{
		OriginalText:   result.OriginalText,
		TranslatedText: result.TranslatedText,
	})
}

// storeError maps conversation service errors to responses
func (h *handlers) storeError(c echo.Context, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Conversation not found",
		})
	}

	h.logger.Error("Conversation request failed",
		zap.String("path", c.Path()),
		zap.String("userID", userIDFrom(c)),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Internal server error",
	})
}
