package main

import "testing"

func TestResolveLanguage(t *testing.T) {
	testCases := []struct {
		name        string
		req         LanguageRequest
		siteDefault string
		expected    LanguageOptions
	}{
		{
			name:        "user preference wins",
			req:         LanguageRequest{UserLocale: "ru_RU", AcceptLanguage: "de-DE"},
			siteDefault: "en",
			expected:    LanguageOptions{Language: "ru-RU", OGLocale: "ru_RU", LanguageCode: "ru", LocaleTag: "ru"},
		},
		{
			name:        "site default before browser",
			req:         LanguageRequest{AcceptLanguage: "de-DE,de;q=0.9"},
			siteDefault: "en_US",
			expected:    LanguageOptions{Language: "en-US", OGLocale: "en_US", LanguageCode: "en", LocaleTag: "en"},
		},
		{
			name:     "browser when nothing else is set",
			req:      LanguageRequest{AcceptLanguage: "pt-br;q=0.9,en;q=0.8"},
			expected: LanguageOptions{Language: "pt-BR", OGLocale: "pt_BR", LanguageCode: "pt", LocaleTag: "pt"},
		},
		{
			name:     "wildcard browser entry is skipped",
			req:      LanguageRequest{AcceptLanguage: "*, fr"},
			expected: LanguageOptions{Language: "fr", OGLocale: "fr", LanguageCode: "fr", LocaleTag: "fr"},
		},
		{
			name:     "browser entries ordered by weight",
			req:      LanguageRequest{AcceptLanguage: "de;q=0.5, fr-CA;q=0.9, *;q=0.1"},
			expected: LanguageOptions{Language: "fr-CA", OGLocale: "fr_CA", LanguageCode: "fr", LocaleTag: "fr"},
		},
		{
			name:     "malformed browser header is ignored",
			req:      LanguageRequest{AcceptLanguage: "en;q=abc"},
			expected: LanguageOptions{Language: "en-US", OGLocale: "en_US", LanguageCode: "en", LocaleTag: "en"},
		},
		{
			name:     "fallback",
			expected: LanguageOptions{Language: "en-US", OGLocale: "en_US", LanguageCode: "en", LocaleTag: "en"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveLanguage(tc.req, tc.siteDefault); got != tc.expected {
				t.Errorf("ResolveLanguage() = %+v, want %+v", got, tc.expected)
			}
		})
	}
}

func TestNormalizeLocale(t *testing.T) {
	testCases := map[string]string{
		"":      "",
		"en":    "en",
		"en_us": "en-US",
		"EN-gb": "en-GB",
		" de ":  "de",
	}
	for input, expected := range testCases {
		if got := normalizeLocale(input); got != expected {
			t.Errorf("normalizeLocale(%q) = %q, want %q", input, got, expected)
		}
	}
}

func TestTranslator(t *testing.T) {
	tr := newTranslator(map[string]string{keyBreadcrumbHome: "Start"})

	testCases := []struct {
		locale   string
		key      string
		args     map[string]string
		expected string
	}{
		{"en", keyBreadcrumbHome, nil, "Start"},
		{"ru", keyTwitterReplies, nil, "Ответы"},
		{"fr", keyTwitterReplies, nil, "Replies"},
		{"en", keyProfilePageTitle, map[string]string{"user_name": "bob"}, "bob's profile"},
		{"en", "unknown_key", nil, "unknown_key"},
	}

	for _, tc := range testCases {
		if got := tr.T(tc.locale, tc.key, tc.args); got != tc.expected {
			t.Errorf("T(%q, %q) = %q, want %q", tc.locale, tc.key, got, tc.expected)
		}
	}
}
