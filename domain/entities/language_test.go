package entities

import "testing"

func TestValidLanguageCode(t *testing.T) {
	valid := []string{"en", "es", "fil", "pt-BR", "zh-Hant"}
	invalid := []string{"", "e", "EN", "english", "en-", "en_US", "12", "en-US-x"}

	for _, code := range valid {
		if !ValidLanguageCode(code) {
			t.Errorf("expected %q to be valid", code)
		}
	}
	for _, code := range invalid {
		if ValidLanguageCode(code) {
			t.Errorf("expected %q to be invalid", code)
		}
	}
}
