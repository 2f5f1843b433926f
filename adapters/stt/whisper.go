package stt

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/translatar/gateway/adapters/upstream"
	"github.com/translatar/gateway/domain/repositories"
)

// WhisperSpeechToText calls the Whisper transcription service over HTTP
type WhisperSpeechToText struct {
	client *upstream.Client
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*WhisperSpeechToText)(nil)

type whisperResponse struct {
	Transcription       *string  `json:"transcription"`
	DetectedLanguage    *string  `json:"detected_language"`
	LanguageProbability *float64 `json:"language_probability"`
}

// NewWhisperSpeechToText creates an adapter for the service rooted at client's base URL
func NewWhisperSpeechToText(client *upstream.Client, logger *zap.Logger) *WhisperSpeechToText {
	return &WhisperSpeechToText{client: client, logger: logger}
}

// Transcribe uploads the chunk as chunk.wav to /transcribe
func (w *WhisperSpeechToText) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) (*repositories.Transcription, error) {
	var resp whisperResponse
	if err := w.client.PostFile(ctx, "/transcribe", "audio_file", "chunk.wav", "audio/wav", audio, &resp); err != nil {
		return nil, err
	}
	if resp.Transcription == nil {
		return nil, &repositories.UpstreamError{Service: w.client.Service(), Err: repositories.ErrInvalidResponse}
	}

	result := &repositories.Transcription{
		Text:                strings.TrimSpace(*resp.Transcription),
		LanguageProbability: resp.LanguageProbability,
	}
	if resp.DetectedLanguage != nil && *resp.DetectedLanguage != "" {
		result.DetectedLanguage = resp.DetectedLanguage
	}

	w.logger.Debug("Transcribed audio chunk",
		zap.Int("audioBytes", len(audio)),
		zap.Int("textLength", len(result.Text)))

	return result, nil
}
