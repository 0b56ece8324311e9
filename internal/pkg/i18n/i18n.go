// Package i18n selects the response language and prints localized strings.
// Packages register their translations with golang.org/x/text/message.SetString.
package i18n

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported lists the languages with translations, default first.
var Supported = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(Supported)

// FromRequest picks the supported language closest to the Accept-Language header.
func FromRequest(r *http.Request) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return Supported[0]
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Supported[0]
	}
	return Supported[index]
}

// Printer returns a printer for the language.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// Set registers the same key for every language in translations.
// English keys double as the English text.
func Set(key string, translations map[language.Tag]string) {
	_ = message.SetString(language.English, key, key)
	for tag, text := range translations {
		_ = message.SetString(tag, key, text)
	}
}
