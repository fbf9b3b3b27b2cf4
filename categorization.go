package main

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// ContentTypeMapper decides which content type a topic is described as
type ContentTypeMapper struct {
	fallback       string
	slugToCategory map[string]string // reverse lookup of category_content_types
}

func newContentTypeMapper(cfg *Config) *ContentTypeMapper {
	m := &ContentTypeMapper{
		fallback:       cfg.ContentType,
		slugToCategory: make(map[string]string),
	}
	// content types in sorted order, so a slug listed twice always resolves
	// to the alphabetically first type
	for _, contentType := range slices.Sorted(maps.Keys(cfg.CategoryContentTypes)) {
		for _, slug := range cfg.CategoryContentTypes[contentType] {
			slug = strings.ToLower(strings.TrimSpace(slug))
			if slug == "" {
				continue
			}
			if existing, ok := m.slugToCategory[slug]; ok && existing != contentType {
				slog.Warn("Category mapped to more than one content type", "slug", slug, "kept", existing, "ignored", contentType)
				continue
			}
			m.slugToCategory[slug] = contentType
		}
	}
	return m
}

// ContentTypeFor checks the topic's category, then its parent, then falls
// back to the site-wide content type.
func (m *ContentTypeMapper) ContentTypeFor(topic *TopicData) string {
	if topic == nil || topic.Category == nil {
		return m.fallback
	}
	if contentType := m.lookup(topic.Category.Slug); contentType != "" {
		return contentType
	}
	if topic.Category.Parent != nil {
		if contentType := m.lookup(topic.Category.Parent.Slug); contentType != "" {
			return contentType
		}
	}
	return m.fallback
}

func (m *ContentTypeMapper) lookup(slug string) string {
	if slug == "" {
		return ""
	}
	return m.slugToCategory[strings.ToLower(slug)]
}
