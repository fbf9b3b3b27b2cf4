package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// PageData is the normalized record a page render works from. More than one
// variant may be populated; classify decides which one wins.
type PageData struct {
	Topic    *TopicData    `json:"topic,omitempty"`
	Category *CategoryData `json:"category,omitempty"`
	User     *UserData     `json:"user,omitempty"`
}

// TopicData represents a discussion thread with its posts
type TopicData struct {
	ID                   int64         `json:"id"`
	Title                string        `json:"title"`
	Slug                 string        `json:"slug"`
	URL                  string        `json:"url"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
	Excerpt              string        `json:"excerpt"`
	ImageURL             string        `json:"image_url"`
	Author               *UserData     `json:"author"`
	Category             *CategoryData `json:"category"`
	Tags                 []TagData     `json:"tags"`
	Views                int           `json:"views"`
	PostsCount           int           `json:"posts_count"`
	LikeCount            int           `json:"like_count"`
	ReplyCount           int           `json:"reply_count"`
	Posts                []PostData    `json:"posts"`
	AcceptedAnswerPostID *PostID       `json:"accepted_answer_post_id"`
	Closed               bool          `json:"closed"`
	Archived             bool          `json:"archived"`
	Pinned               bool          `json:"pinned"`
}

// CategoryData represents a category page. Parent and Subcategories are
// shallow copies so walking them always terminates.
type CategoryData struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	URL           string        `json:"url"`
	Description   string        `json:"description"`
	Color         string        `json:"color"`
	UpdatedAt     time.Time     `json:"updated_at"`
	TopicCount    *int          `json:"topic_count"`
	PostCount     int           `json:"post_count"`
	Parent        *CategoryRef  `json:"parent_category"`
	Subcategories []CategoryRef `json:"subcategories"`
}

// CategoryRef is a category without parent or subcategory links
type CategoryRef struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Color       string `json:"color"`
	TopicCount  int    `json:"topic_count"`
	PostCount   int    `json:"post_count"`
}

// UserData represents a user profile or a post author
type UserData struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	URL            string    `json:"url"`
	AvatarURL      string    `json:"avatar_url"`
	AvatarTemplate string    `json:"avatar_template"`
	Title          string    `json:"title"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location"`
	Website        string    `json:"website"`
	TopicCount     int       `json:"topic_count"`
	PostCount      int       `json:"post_count"`
	LikesGiven     int       `json:"likes_given"`
	LikesReceived  int       `json:"likes_received"`
	DaysVisited    int       `json:"days_visited"`
	PostsReadCount int       `json:"posts_read_count"`
	TimeRead       int       `json:"time_read"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	TrustLevel     int       `json:"trust_level"`
	Admin          bool      `json:"admin"`
	Moderator      bool      `json:"moderator"`
}

// PostData represents a single post within a topic
type PostData struct {
	ID                int64     `json:"id"`
	PostNumber        int       `json:"post_number"`
	URL               string    `json:"url"`
	Raw               string    `json:"raw"`
	Cooked            string    `json:"cooked"`
	Excerpt           string    `json:"excerpt"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ReplyToPostNumber *int      `json:"reply_to_post_number"`
	LikeCount         int       `json:"like_count"`
	Author            *UserData `json:"author"`
	IsFirstPost       bool      `json:"is_first_post"`
}

// TagData represents a topic tag
type TagData struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	TopicCount  int    `json:"topic_count"`
}

// PostID is a post identifier that decodes from either a JSON number or a
// numeric string, since topic custom fields store it as text.
type PostID int64

func (p *PostID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid post id %q: %w", string(b), err)
	}
	*p = PostID(id)
	return nil
}

// LanguageOptions is the resolved language bundle passed to every builder
type LanguageOptions struct {
	Language     string `json:"language"`      // en-US
	OGLocale     string `json:"og_locale"`     // en_US
	LanguageCode string `json:"language_code"` // en
	LocaleTag    string `json:"locale_tag"`    // translation table key
}

// HeadResult is the output of one render call
type HeadResult struct {
	Head string `json:"head"`
	Body string `json:"body"`
}
