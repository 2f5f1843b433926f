package translation

import (
	"context"

	"github.com/translatar/gateway/adapters/upstream"
	"github.com/translatar/gateway/domain/repositories"
)

// ServiceTranslator calls the translation wrapper service
type ServiceTranslator struct {
	client *upstream.Client
}

var _ repositories.Translator = (*ServiceTranslator)(nil)

type serviceRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type serviceResponse struct {
	TranslatedText *string `json:"translated_text"`
}

func NewServiceTranslator(client *upstream.Client) *ServiceTranslator {
	return &ServiceTranslator{client: client}
}

// Translate implements repositories.Translator
func (s *ServiceTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var resp serviceResponse
	err := s.client.PostJSON(ctx, "/translate", serviceRequest{
		Text:       text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}, &resp, nil)
	if err != nil {
		return "", err
	}
	if resp.TranslatedText == nil {
		return "", &repositories.UpstreamError{Service: s.client.Service(), Err: repositories.ErrInvalidResponse}
	}
	return *resp.TranslatedText, nil
}
