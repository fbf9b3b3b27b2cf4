package main

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// metaTag is one <meta> element. Attr is "property" for Open Graph and
// "name" for Twitter cards.
type metaTag struct {
	Attr    string
	Key     string
	Content string
}

func ogTag(property, content string) metaTag {
	return metaTag{Attr: "property", Key: property, Content: content}
}

// ogTags expands a multi-valued property into one tag per value
func ogTags(property string, values []string) []metaTag {
	tags := make([]metaTag, 0, len(values))
	for _, v := range values {
		tags = append(tags, ogTag(property, v))
	}
	return tags
}

// OG image defaults advertised for topic pages
const (
	ogImageWidth  = "1200"
	ogImageHeight = "630"
	ogImageType   = "image/jpeg"
)

func buildOpenGraph(b *buildContext) (string, error) {
	return renderMetaTags(openGraphTags(b))
}

// openGraphTags returns only the properties the host page does not already
// emit. The host covers og:site_name, og:type, og:title, og:url,
// og:description, og:image, article:published_time and article:section.
func openGraphTags(b *buildContext) []metaTag {
	alternates := ogTags("og:locale:alternate", b.cfg.alternateLocales())

	switch b.variant {
	case VariantTopic:
		topic := b.data.Topic
		tags := []metaTag{
			ogTag("og:locale", b.lang.OGLocale),
			ogTag("og:image:width", ogImageWidth),
			ogTag("og:image:height", ogImageHeight),
			ogTag("og:image:type", ogImageType),
			ogTag("og:image:alt", topic.Title),
		}
		tags = append(tags, alternates...)
		if ogType(b.contentType) == "article" {
			tags = append(tags, articleTags(topic)...)
		}
		return tags

	case VariantUser:
		user := b.data.User
		first, last := splitName(displayName(user))
		tags := []metaTag{
			ogTag("og:type", "profile"),
			ogTag("og:locale", b.lang.OGLocale),
			ogTag("profile:username", user.Username),
			ogTag("profile:first_name", first),
			ogTag("profile:last_name", last),
		}
		return append(tags, alternates...)

	default:
		return append([]metaTag{ogTag("og:locale", b.lang.OGLocale)}, alternates...)
	}
}

func articleTags(topic *TopicData) []metaTag {
	tags := []metaTag{
		ogTag("article:modified_time", iso8601(topic.UpdatedAt)),
	}
	if topic.Author != nil {
		tags = append(tags, ogTag("article:author", topic.Author.URL))
	}
	for _, tag := range topic.Tags {
		tags = append(tags, ogTag("article:tag", tag.Name))
	}
	return tags
}

// splitName splits a display name into the first word and the rest
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func buildTwitterCard(b *buildContext) (string, error) {
	return renderMetaTags(twitterCardTags(b))
}

func twitterTag(name, content string) metaTag {
	return metaTag{Attr: "name", Key: name, Content: content}
}

// twitterCardTags complements the twitter:title, twitter:description and
// twitter:image tags the host page already renders.
func twitterCardTags(b *buildContext) []metaTag {
	var tags []metaTag

	switch b.variant {
	case VariantTopic:
		topic := b.data.Topic
		tags = append(tags,
			twitterTag("twitter:card", "summary_large_image"),
			twitterTag("twitter:image:alt", topic.Title),
		)
		labels := []twitterLabel{{b.t(keyTwitterReplies, nil), strconv.Itoa(commentCount(topic.PostsCount))}}
		if topic.Category != nil && topic.Category.Name != "" {
			labels = append(labels, twitterLabel{b.t(keyTwitterCategory, nil), topic.Category.Name})
		}
		tags = append(tags, twitterLabelTags(labels)...)

	case VariantCategory:
		category := b.data.Category
		tags = append(tags, twitterTag("twitter:card", "summary"))
		tags = append(tags, twitterLabelTags(counterLabels(
			twitterLabel{b.t(keyTwitterTopics, nil), countString(category.TopicCount)},
			twitterLabel{b.t(keyTwitterPosts, nil), strconv.Itoa(category.PostCount)},
		))...)

	case VariantUser:
		user := b.data.User
		tags = append(tags, twitterTag("twitter:card", "summary"))
		tags = append(tags, twitterLabelTags(counterLabels(
			twitterLabel{b.t(keyTwitterTopics, nil), strconv.Itoa(user.TopicCount)},
			twitterLabel{b.t(keyTwitterLikes, nil), strconv.Itoa(user.LikesReceived)},
		))...)
	}

	return append(tags, twitterTag("twitter:site", b.cfg.twitterHandle()))
}

type twitterLabel struct {
	Label string
	Data  string
}

// twitterLabelTags numbers label/data pairs as twitter:label1, twitter:data1...
func twitterLabelTags(labels []twitterLabel) []metaTag {
	var tags []metaTag
	for i, l := range labels {
		n := strconv.Itoa(i + 1)
		tags = append(tags,
			twitterTag("twitter:label"+n, l.Label),
			twitterTag("twitter:data"+n, l.Data),
		)
	}
	return tags
}

// counterLabels drops labels whose counter is zero
func counterLabels(labels ...twitterLabel) []twitterLabel {
	var out []twitterLabel
	for _, l := range labels {
		if l.Data != "" && l.Data != "0" {
			out = append(out, l)
		}
	}
	return out
}

func countString(count *int) string {
	if count == nil {
		return ""
	}
	return strconv.Itoa(*count)
}

// renderMetaTags renders one <meta> element per tag, skipping empty content
func renderMetaTags(tags []metaTag) (string, error) {
	var sb strings.Builder
	for _, tag := range tags {
		if tag.Content == "" {
			continue
		}
		node := &html.Node{
			Type:     html.ElementNode,
			Data:     "meta",
			DataAtom: atom.Meta,
			Attr: []html.Attribute{
				{Key: tag.Attr, Val: tag.Key},
				{Key: "content", Val: tag.Content},
			},
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		if err := html.Render(&sb, node); err != nil {
			return "", fmt.Errorf("failed to render meta %s: %w", tag.Key, err)
		}
	}
	return sb.String(), nil
}
