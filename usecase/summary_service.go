package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/repositories"
)

// ErrEmptyConversation is returned when there is nothing to summarize
var ErrEmptyConversation = errors.New("conversation has no translations")

var lengthPrompts = map[string]string{
	"short":  "Summarize the following text in one to two sentences.",
	"medium": "Provide a concise summary of the following text, covering the main points.",
	"long":   "Provide a detailed summary of the following text, including key details and nuances.",
}

// SummaryService summarizes the transcript of a conversation
type SummaryService struct {
	conversations *ConversationService
	summarizer    repositories.Summarizer
	logger        *zap.Logger
}

func NewSummaryService(conversations *ConversationService, summarizer repositories.Summarizer, logger *zap.Logger) *SummaryService {
	return &SummaryService{
		conversations: conversations,
		summarizer:    summarizer,
		logger:        logger,
	}
}

// Summarize returns a summary of the original texts of a conversation owned
// by userID. Unknown lengths fall back to medium.
func (s *SummaryService) Summarize(ctx context.Context, conversationID, userID, length string) (string, error) {
	detail, err := s.conversations.GetWithRecords(ctx, conversationID, userID)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(detail.Translations))
	for _, record := range detail.Translations {
		if text := strings.TrimSpace(record.OriginalText); text != "" {
			lines = append(lines, text)
		}
	}
	if len(lines) == 0 {
		return "", ErrEmptyConversation
	}

	instruction, ok := lengthPrompts[length]
	if !ok {
		instruction = lengthPrompts["medium"]
	}

	s.logger.Info("Summarizing conversation",
		zap.String("conversationID", conversationID),
		zap.String("length", length),
		zap.Int("lines", len(lines)))

	return s.summarizer.Summarize(ctx, instruction, strings.Join(lines, "\n"))
}
