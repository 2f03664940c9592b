package handlers

import (
	"net/http"

	"golang.org/x/text/language"
)

const defaultLocale = "en"

// localeFor returns the configured locale, else the visitor's preferred
// Accept-Language tag, else English
func (h *Handlers) localeFor(r *http.Request) string {
	if h.locale != "" {
		return h.locale
	}
	return negotiateLocale(r.Header.Get("Accept-Language"))
}

func negotiateLocale(header string) string {
	if header == "" {
		return defaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 || tags[0] == language.Und {
		return defaultLocale
	}
	return tags[0].String()
}
