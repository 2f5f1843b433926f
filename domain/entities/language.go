package entities

import "regexp"

// languageCodePattern accepts ISO 639 codes with an optional region or script
// subtag, e.g. "en", "pt-BR", "zh-Hant"
var languageCodePattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})?$`)

// ValidLanguageCode reports whether code looks like a language code the
// translation engines accept
func ValidLanguageCode(code string) bool {
	return languageCodePattern.MatchString(code)
}
