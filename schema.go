package main

import (
	"encoding/json"
	"fmt"
)

// buildContext is everything a builder may read. Builders never look at
// global state.
type buildContext struct {
	data        *PageData
	variant     Variant
	contentType string
	cfg         *Config
	lang        LanguageOptions
	tr          Translator
}

func newBuildContext(data *PageData, cfg *Config, lang LanguageOptions) *buildContext {
	if data == nil {
		data = &PageData{}
	}
	return &buildContext{
		data:        data,
		variant:     classify(data),
		contentType: newContentTypeMapper(cfg).ContentTypeFor(data.Topic),
		cfg:         cfg,
		lang:        lang,
		tr:          newTranslator(cfg.Translations),
	}
}

func (b *buildContext) t(key string, args map[string]string) string {
	return b.tr.T(b.lang.LocaleTag, key, args)
}

func (b *buildContext) websiteID() string {
	return b.cfg.BaseURL + "/#website"
}

// pageURL is the canonical URL of the page being described
func (b *buildContext) pageURL() string {
	switch b.variant {
	case VariantTopic:
		return b.data.Topic.URL
	case VariantCategory:
		return b.data.Category.URL
	case VariantUser:
		return b.data.User.URL
	}
	return ""
}

// buildSchema renders every enabled graph into a single ld+json script block
func buildSchema(b *buildContext) (string, error) {
	graphs := collectSchemas(b)
	if len(graphs) == 0 {
		return "", nil
	}

	var payload any = graphs
	if len(graphs) == 1 {
		payload = graphs[0]
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON-LD: %w", err)
	}
	return fmt.Sprintf("<script type=\"application/ld+json\">\n%s\n</script>", out), nil
}

func collectSchemas(b *buildContext) []*Node {
	var graphs []*Node

	if website := isolate("WebsiteBuilder", func() (*Node, error) { return buildWebsite(b) }); website != nil {
		graphs = append(graphs, website)
	}

	if b.cfg.EnableBreadcrumbs {
		if breadcrumb := isolate("BreadcrumbBuilder", func() (*Node, error) { return buildBreadcrumb(b) }); breadcrumb != nil {
			graphs = append(graphs, breadcrumb)
		}
	}

	if main := isolate("MainSchema:"+b.variant.String(), func() (*Node, error) { return buildMainSchema(b) }); main != nil {
		graphs = append(graphs, main)
	}

	return graphs
}

func buildMainSchema(b *buildContext) (*Node, error) {
	switch b.variant {
	case VariantTopic:
		return buildTopicPage(b)
	case VariantCategory:
		return buildCollectionPage(b)
	case VariantUser:
		return buildProfilePage(b)
	default:
		return nil, nil
	}
}
