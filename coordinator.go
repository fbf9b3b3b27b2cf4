package main

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

// Coordinator renders the full head fragment for one page
type Coordinator struct {
	b *buildContext
}

// NewCoordinator prepares a render of data. A zero LanguageOptions falls back
// to en-US.
func NewCoordinator(data *PageData, cfg *Config, lang LanguageOptions) *Coordinator {
	if lang.Language == "" {
		lang = defaultLanguageOptions()
	}
	b := newBuildContext(data, cfg, lang)
	if rejected := rejectedVariants(b.data, b.variant); len(rejected) > 0 {
		slog.Warn("Ignoring records without discriminating fields", "rejected", rejected, "variant", b.variant)
	}
	return &Coordinator{b: b}
}

// Variant reports which page kind the coordinator resolved
func (c *Coordinator) Variant() Variant {
	return c.b.variant
}

// Generate renders crawler hints, Open Graph, Twitter card and JSON-LD in
// that order. A failing segment is logged and left out.
func (c *Coordinator) Generate() HeadResult {
	segments := []struct {
		name  string
		build func(*buildContext) (string, error)
	}{
		{"CrawlerHints", buildCrawlerHints},
		{"OpenGraph", buildOpenGraph},
		{"TwitterCard", buildTwitterCard},
		{"Schema", buildSchema},
	}

	var parts []string
	for _, segment := range segments {
		out := isolate(segment.name, func() (string, error) { return segment.build(c.b) })
		if out != "" {
			parts = append(parts, out)
		}
	}

	slog.Debug("Generated head fragment", "variant", c.b.variant, "segments", len(parts))
	return HeadResult{Head: strings.Join(parts, "\n")}
}

// buildCrawlerHints points LLM crawlers at the site's text indexes
func buildCrawlerHints(b *buildContext) (string, error) {
	base := b.cfg.BaseURL
	return renderMetaTags([]metaTag{
		{Attr: "name", Key: "llms-txt", Content: base + "/llms.txt"},
		{Attr: "name", Key: "llms-full-txt", Content: base + "/llms-full.txt"},
		{Attr: "name", Key: "llms-sitemaps-txt", Content: base + "/sitemaps.txt"},
	})
}

// isolate runs fn and turns an error or panic into a logged zero value, so a
// failing component never takes its siblings down with it.
func isolate[T any](component string, fn func() (T, error)) (result T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic", "component", component, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			var zero T
			result = zero
		}
	}()

	v, err := fn()
	if err != nil {
		var missing *MissingFieldError
		if errors.As(err, &missing) {
			slog.Warn("Omitting node with missing field", "component", component, "node", missing.NodeType, "field", missing.Field)
		} else {
			slog.Error("Component failed", "component", component, "error", err)
		}
		var zero T
		return zero
	}
	return v
}
