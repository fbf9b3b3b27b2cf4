package main

import (
	"log/slog"
	"strings"

	"golang.org/x/text/language"
)

const fallbackLanguage = "en-US"

// LanguageRequest carries the per-request hints used to pick a language.
// Every field is optional.
type LanguageRequest struct {
	UserLocale     string
	AcceptLanguage string
}

// ResolveLanguage picks the page language with priority:
// user preference > site default > browser Accept-Language > en-US
func ResolveLanguage(req LanguageRequest, siteDefault string) LanguageOptions {
	lang := normalizeLocale(req.UserLocale)
	if lang == "" {
		lang = normalizeLocale(siteDefault)
	}
	if lang == "" {
		lang = browserLanguage(req.AcceptLanguage)
	}
	if lang == "" {
		lang = fallbackLanguage
	}
	return languageOptionsFor(lang)
}

func languageOptionsFor(lang string) LanguageOptions {
	code := strings.SplitN(lang, "-", 2)[0]
	return LanguageOptions{
		Language:     lang,
		OGLocale:     strings.ReplaceAll(lang, "-", "_"),
		LanguageCode: code,
		LocaleTag:    code,
	}
}

// defaultLanguageOptions is the bundle used when a caller supplies none
func defaultLanguageOptions() LanguageOptions {
	return languageOptionsFor(fallbackLanguage)
}

// browserLanguage returns the highest weighted language of an
// Accept-Language header, skipping the "*" wildcard. Equal weights keep
// header order.
func browserLanguage(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		slog.Debug("Ignoring malformed Accept-Language header", "header", header, "error", err)
		return ""
	}
	for _, tag := range tags {
		// "*" parses as the "mul" (multiple languages) tag
		if base, _ := tag.Base(); tag == language.Und || base.String() == "mul" {
			continue
		}
		return normalizeLocale(tag.String())
	}
	return ""
}

// normalizeLocale converts en_us, EN-us etc. into en-US
func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(strings.ReplaceAll(locale, "_", "-"))
	if locale == "" {
		return ""
	}
	if tag, err := language.Parse(locale); err == nil && tag != language.Und {
		return tag.String()
	}

	parts := strings.Split(locale, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) > 1 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}
