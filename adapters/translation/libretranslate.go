package translation

import (
	"context"

	"github.com/translatar/gateway/adapters/upstream"
	"github.com/translatar/gateway/domain/repositories"
)

// LibreTranslator talks to a LibreTranslate engine directly
type LibreTranslator struct {
	client *upstream.Client
	apiKey string
}

var _ repositories.Translator = (*LibreTranslator)(nil)

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText *string `json:"translatedText"`
}

func NewLibreTranslator(client *upstream.Client, apiKey string) *LibreTranslator {
	return &LibreTranslator{client: client, apiKey: apiKey}
}

// Translate implements repositories.Translator
func (l *LibreTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var resp libreResponse
	err := l.client.PostJSON(ctx, "/translate", libreRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: l.apiKey,
	}, &resp, nil)
	if err != nil {
		return "", err
	}
	if resp.TranslatedText == nil {
		return "", &repositories.UpstreamError{Service: l.client.Service(), Err: repositories.ErrInvalidResponse}
	}
	return *resp.TranslatedText, nil
}
