package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const excerptLength = 300

// NormalizePageData fills derived fields and cleans host data in place so
// builders can rely on a consistent shape.
func NormalizePageData(data *PageData, cfg *Config) {
	if data == nil {
		return
	}
	if data.Topic != nil {
		normalizeTopic(data.Topic, cfg)
	}
	if data.Category != nil {
		normalizeCategory(data.Category, cfg)
	}
	if data.User != nil {
		normalizeUser(data.User, cfg)
	}
}

func normalizeTopic(topic *TopicData, cfg *Config) {
	topic.URL = cfg.absoluteURL(topic.URL)

	sort.SliceStable(topic.Posts, func(i, j int) bool {
		return topic.Posts[i].PostNumber < topic.Posts[j].PostNumber
	})
	seenFirst := false
	for i := range topic.Posts {
		post := &topic.Posts[i]
		post.IsFirstPost = post.PostNumber == 1 && !seenFirst
		seenFirst = seenFirst || post.IsFirstPost
		post.URL = cfg.absoluteURL(post.URL)
		// the topic API only returns cooked HTML
		if strings.TrimSpace(post.Raw) == "" && post.Cooked != "" {
			post.Raw = stripTags(post.Cooked)
		}
		if post.Author != nil {
			normalizeUser(post.Author, cfg)
		}
	}

	if topic.Author != nil {
		normalizeUser(topic.Author, cfg)
	}
	if topic.Category != nil {
		normalizeCategory(topic.Category, cfg)
	}
	for i := range topic.Tags {
		topic.Tags[i].URL = cfg.absoluteURL(topic.Tags[i].URL)
	}

	first := firstPost(topic)
	topic.ImageURL = topicImage(topic, first, cfg)

	excerpt := topic.Excerpt
	if strings.TrimSpace(excerpt) == "" && first != nil {
		excerpt = first.Excerpt
		if excerpt == "" {
			excerpt = first.Cooked
		}
	}
	topic.Excerpt = truncateText(excerpt, excerptLength)
}

// topicImage picks the explicit image, then the first image in the opening
// post, then the configured default, then the site logo.
func topicImage(topic *TopicData, first *PostData, cfg *Config) string {
	if topic.ImageURL != "" {
		return cfg.absoluteURL(topic.ImageURL)
	}
	if first != nil {
		if src := firstImageSource(first.Cooked); src != "" {
			return cfg.absoluteURL(src)
		}
	}
	if cfg.DefaultOGImage != "" {
		return cfg.absoluteURL(cfg.DefaultOGImage)
	}
	return cfg.siteLogoURL()
}

func firstImageSource(cooked string) string {
	if !strings.Contains(cooked, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cooked))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

// normalizeCategory enforces shallow copies: the parent reference and the
// subcategory list never point back into a tree.
func normalizeCategory(category *CategoryData, cfg *Config) {
	category.URL = cfg.absoluteURL(category.URL)
	if category.Parent != nil {
		if category.Parent.ID == category.ID {
			category.Parent = nil
		} else {
			category.Parent.URL = cfg.absoluteURL(category.Parent.URL)
		}
	}
	for i := range category.Subcategories {
		category.Subcategories[i].URL = cfg.absoluteURL(category.Subcategories[i].URL)
	}
}

func normalizeUser(user *UserData, cfg *Config) {
	user.Name = strings.TrimSpace(user.Name)
	user.Username = strings.TrimSpace(user.Username)
	user.URL = cfg.absoluteURL(user.URL)
	if user.AvatarURL == "" && user.AvatarTemplate != "" {
		user.AvatarURL = strings.ReplaceAll(user.AvatarTemplate, "{size}", strconv.Itoa(avatarSize))
	}
	user.AvatarURL = cfg.absoluteURL(user.AvatarURL)
	if strings.Contains(user.Bio, "<") {
		user.Bio = stripTags(user.Bio)
	}
	user.Bio = strings.TrimSpace(user.Bio)
}

// stripTags returns the text content of an HTML fragment with runs of
// whitespace collapsed.
func stripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
