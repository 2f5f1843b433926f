package repositories

import "context"

// Translator abstracts machine translation services
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
