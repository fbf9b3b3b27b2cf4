package main

import (
	"fmt"
	"log/slog"

	"github.com/gorilla/feeds"
)

// BuildTopicFeed renders the posts of a topic as an Atom feed for crawlers
// that follow the llms hints. Posts are expected in normalized order.
func BuildTopicFeed(topic *TopicData, cfg *Config) (string, error) {
	if topic == nil {
		return "", fmt.Errorf("no topic to build a feed from")
	}
	slog.Debug("Generating topic feed", "topic_id", topic.ID, "postCount", len(topic.Posts))

	topicURL := cfg.absoluteURL(topic.URL)
	if topicURL == "" {
		topicURL = cfg.BaseURL
	}

	feed := &feeds.Feed{
		Title:       topic.Title,
		Description: truncateText(topic.Excerpt, excerptLength),
		Link:        &feeds.Link{Href: topicURL, Rel: "self", Type: "text/html"},
		Id:          topicURL,
		Created:     topic.CreatedAt,
		Updated:     topic.UpdatedAt,
	}
	if topic.Author != nil {
		feed.Author = &feeds.Author{Name: profileName(topic.Author)}
	}
	if topic.ImageURL != "" {
		feed.Image = &feeds.Image{Url: topic.ImageURL, Title: topic.Title, Link: topicURL}
	}

	for i := range topic.Posts {
		post := &topic.Posts[i]
		link := cfg.absoluteURL(post.URL)
		if link == "" {
			link = fmt.Sprintf("%s/%d", topicURL, post.PostNumber)
		}

		content := post.Cooked
		if content == "" {
			content = post.Raw
		}

		updated := post.UpdatedAt
		if updated.IsZero() {
			updated = post.CreatedAt
		}

		feed.Items = append(feed.Items, &feeds.Item{
			Title:       fmt.Sprintf("%s #%d", topic.Title, post.PostNumber),
			Link:        &feeds.Link{Href: link, Rel: "alternate", Type: "text/html"},
			Id:          link,
			Author:      &feeds.Author{Name: profileName(post.Author)},
			Description: truncateText(post.Excerpt, excerptLength),
			Content:     content,
			Created:     post.CreatedAt,
			Updated:     updated,
		})
	}

	atom, err := feed.ToAtom()
	if err != nil {
		return "", fmt.Errorf("failed to render topic feed: %w", err)
	}

	slog.Debug("Topic feed generated successfully", "feedSize", len(atom))
	return atom, nil
}
