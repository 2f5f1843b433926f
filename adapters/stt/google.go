package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"

	"github.com/translatar/gateway/domain/repositories"
)

const googleService = "google-speech"

// recognizer is the part of *speech.Client used here
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client       recognizer
	closer       func() error
	languageCode string
	logger       *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a Google Cloud Speech client using application default credentials
func NewGoogleSpeechToText(ctx context.Context, languageCode string, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleSpeechToText{
		client:       client,
		closer:       client.Close,
		languageCode: languageCode,
		logger:       logger,
	}, nil
}

// Transcribe recognizes one chunk with a synchronous Recognize call
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) (*repositories.Transcription, error) {
	encodingName := config.Encoding
	if encodingName == "" {
		encodingName = "WAV"
	}
	encoding, err := getAudioEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	languageCode := config.Language
	if languageCode == "" {
		languageCode = g.languageCode
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:     encoding,
		LanguageCode: languageCode,
	}
	// WAV headers carry the rate; only set it when the caller knows better
	if config.SampleRate > 0 {
		recognitionConfig.SampleRateHertz = int32(config.SampleRate)
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	})
	if err != nil {
		return nil, &repositories.UpstreamError{Service: googleService, Err: err}
	}

	var texts []string
	var detected string
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		texts = append(texts, strings.TrimSpace(result.GetAlternatives()[0].GetTranscript()))
		if detected == "" {
			detected = result.GetLanguageCode()
		}
	}

	transcription := &repositories.Transcription{Text: strings.TrimSpace(strings.Join(texts, " "))}
	if detected != "" {
		// Google reports BCP-47 tags such as "en-us"; keep the primary subtag
		lang := strings.ToLower(strings.SplitN(detected, "-", 2)[0])
		transcription.DetectedLanguage = &lang
	}

	g.logger.Debug("Transcribed audio chunk",
		zap.Int("audioBytes", len(audio)),
		zap.Int("results", len(resp.GetResults())))

	return transcription, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
