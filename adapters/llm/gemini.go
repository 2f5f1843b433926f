package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/translatar/gateway/domain/repositories"
)

const (
	geminiService     = "gemini"
	defaultModel      = "gemini-2.0-flash"
	maxAttempts       = 3
	defaultRetryDelay = time.Second
)

// contentGenerator is the part of genai.Models used here
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSummarizer implements the Summarizer interface using Google's Gemini API
type GeminiSummarizer struct {
	models     contentGenerator
	logger     *zap.Logger
	model      string
	retryDelay time.Duration
}

var _ repositories.Summarizer = (*GeminiSummarizer)(nil)

// NewGeminiSummarizer creates a new Gemini client
func NewGeminiSummarizer(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiSummarizer{
		models:     client.Models,
		logger:     logger,
		model:      model,
		retryDelay: defaultRetryDelay,
	}, nil
}

// Summarize implements repositories.Summarizer
func (g *GeminiSummarizer) Summarize(ctx context.Context, instruction, text string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(instruction+"\n\n"+text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err = g.models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate summary, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return "", &repositories.UpstreamError{Service: geminiService, Err: ctx.Err()}
			case <-time.After(time.Duration(attempt+1) * g.retryDelay):
			}
		}
	}
	if err != nil {
		return "", &repositories.UpstreamError{Service: geminiService, Err: err}
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", &repositories.UpstreamError{Service: geminiService, Err: repositories.ErrInvalidResponse}
	}

	var summary strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			summary.WriteString(part.Text)
		}
	}
	if summary.Len() == 0 {
		return "", &repositories.UpstreamError{Service: geminiService, Err: repositories.ErrInvalidResponse}
	}

	return strings.TrimSpace(summary.String()), nil
}
