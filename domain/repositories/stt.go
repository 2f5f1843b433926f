package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Transcribe converts one audio chunk to text. An empty Text means silence.
	Transcribe(ctx context.Context, audio []byte, config AudioConfig) (*Transcription, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// Transcription is the result of recognizing one chunk
type Transcription struct {
	Text                string
	DetectedLanguage    *string
	LanguageProbability *float64
}
