package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrNotFound is returned when the forum has no such topic, category or user
var ErrNotFound = errors.New("not found")

const likeActionType = 2

// ForumClient reads page data from a Discourse-compatible JSON API
type ForumClient struct {
	baseURL    string
	client     *http.Client
	fetchStats bool
}

// NewForumClient creates a client for the forum at baseURL. When fetchStats
// is set, author activity summaries are loaded alongside topics and users.
func NewForumClient(baseURL string, fetchStats bool) *ForumClient {
	return &ForumClient{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		fetchStats: fetchStats,
	}
}

type forumUser struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	AvatarTemplate string    `json:"avatar_template"`
	Title          string    `json:"title"`
	BioCooked      string    `json:"bio_cooked"`
	Location       string    `json:"location"`
	Website        string    `json:"website"`
	CreatedAt      time.Time `json:"created_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	TrustLevel     int       `json:"trust_level"`
	Admin          bool      `json:"admin"`
	Moderator      bool      `json:"moderator"`
}

type forumUserSummary struct {
	LikesGiven     int `json:"likes_given"`
	LikesReceived  int `json:"likes_received"`
	DaysVisited    int `json:"days_visited"`
	PostsReadCount int `json:"posts_read_count"`
	TopicCount     int `json:"topic_count"`
	PostCount      int `json:"post_count"`
	TimeRead       int `json:"time_read"`
}

type forumAction struct {
	ID    int `json:"id"`
	Count int `json:"count"`
}

type forumPost struct {
	ID                int64         `json:"id"`
	PostNumber        int           `json:"post_number"`
	Username          string        `json:"username"`
	Name              string        `json:"name"`
	UserID            int64         `json:"user_id"`
	AvatarTemplate    string        `json:"avatar_template"`
	Cooked            string        `json:"cooked"`
	Raw               string        `json:"raw"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	ReplyToPostNumber *int          `json:"reply_to_post_number"`
	ActionsSummary    []forumAction `json:"actions_summary"`
	AcceptedAnswer    bool          `json:"accepted_answer"`
}

// forumTag accepts both the plain string and the object form of a tag
type forumTag struct {
	Name string
}

func (t *forumTag) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &t.Name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	t.Name = obj.Name
	return nil
}

type forumTopic struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	CreatedAt      time.Time  `json:"created_at"`
	LastPostedAt   time.Time  `json:"last_posted_at"`
	BumpedAt       time.Time  `json:"bumped_at"`
	Views          int        `json:"views"`
	PostsCount     int        `json:"posts_count"`
	LikeCount      int        `json:"like_count"`
	ReplyCount     int        `json:"reply_count"`
	CategoryID     int64      `json:"category_id"`
	Tags           []forumTag `json:"tags"`
	ImageURL       string     `json:"image_url"`
	Closed         bool       `json:"closed"`
	Archived       bool       `json:"archived"`
	Pinned         bool       `json:"pinned"`
	AcceptedAnswer *struct {
		PostNumber int `json:"post_number"`
	} `json:"accepted_answer"`
	Details struct {
		CreatedBy forumUser `json:"created_by"`
	} `json:"details"`
	PostStream struct {
		Posts []forumPost `json:"posts"`
	} `json:"post_stream"`
}

type forumCategory struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Slug             string          `json:"slug"`
	Description      string          `json:"description_text"`
	Color            string          `json:"color"`
	TopicCount       int             `json:"topic_count"`
	PostCount        int             `json:"post_count"`
	ParentCategoryID int64           `json:"parent_category_id"`
	SubcategoryList  []forumCategory `json:"subcategory_list"`
}

// statsResult carries one user summary back from the worker pool
type statsResult struct {
	username string
	summary  forumUserSummary
	err      error
}

// getJSON fetches path relative to the forum base URL and decodes the body
func (c *ForumClient) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	case res.StatusCode == http.StatusTooManyRequests:
		slog.Error("Rate limit exceeded (429) from forum API", "path", path)
		return fmt.Errorf("rate limit exceeded (429)")
	case res.StatusCode != http.StatusOK:
		return fmt.Errorf("HTTP error %d", res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", path, err)
	}
	return nil
}

// FetchTopic loads a topic with its posts, category and author statistics
func (c *ForumClient) FetchTopic(ctx context.Context, id int64) (*PageData, error) {
	slog.Debug("Fetching topic from forum API", "topic_id", id)

	var raw forumTopic
	if err := c.getJSON(ctx, fmt.Sprintf("/t/%d.json", id), &raw); err != nil {
		return nil, err
	}

	topic := c.topicFromForum(&raw)

	if raw.CategoryID != 0 {
		category, err := c.fetchCategory(ctx, raw.CategoryID)
		if err != nil {
			slog.Warn("Failed to fetch topic category", "error", err, "category_id", raw.CategoryID)
		} else {
			topic.Category = category
		}
	}

	if c.fetchStats {
		users := []*UserData{topic.Author}
		for i := range topic.Posts {
			users = append(users, topic.Posts[i].Author)
		}
		c.applyUserStats(ctx, users)
	}

	slog.Debug("Fetched topic", "topic_id", id, "postCount", len(topic.Posts))
	return &PageData{Topic: topic}, nil
}

func (c *ForumClient) topicFromForum(raw *forumTopic) *TopicData {
	topicURL := fmt.Sprintf("%s/t/%s/%d", c.baseURL, raw.Slug, raw.ID)
	updatedAt := raw.BumpedAt
	if raw.LastPostedAt.After(updatedAt) {
		updatedAt = raw.LastPostedAt
	}

	topic := &TopicData{
		ID:         raw.ID,
		Title:      raw.Title,
		Slug:       raw.Slug,
		URL:        topicURL,
		CreatedAt:  raw.CreatedAt,
		UpdatedAt:  updatedAt,
		ImageURL:   raw.ImageURL,
		Views:      raw.Views,
		PostsCount: raw.PostsCount,
		LikeCount:  raw.LikeCount,
		ReplyCount: raw.ReplyCount,
		Closed:     raw.Closed,
		Archived:   raw.Archived,
		Pinned:     raw.Pinned,
	}
	if raw.Details.CreatedBy.Username != "" {
		topic.Author = c.userFromForum(&raw.Details.CreatedBy)
	}

	for _, tag := range raw.Tags {
		if tag.Name == "" {
			continue
		}
		topic.Tags = append(topic.Tags, TagData{
			Name: tag.Name,
			URL:  c.baseURL + "/tag/" + url.PathEscape(tag.Name),
		})
	}

	acceptedNumber := 0
	if raw.AcceptedAnswer != nil {
		acceptedNumber = raw.AcceptedAnswer.PostNumber
	}

	authors := make(map[string]*UserData)
	for _, p := range raw.PostStream.Posts {
		author, ok := authors[p.Username]
		if !ok {
			author = c.userFromForum(&forumUser{
				ID:             p.UserID,
				Username:       p.Username,
				Name:           p.Name,
				AvatarTemplate: p.AvatarTemplate,
			})
			authors[p.Username] = author
		}

		post := PostData{
			ID:                p.ID,
			PostNumber:        p.PostNumber,
			URL:               fmt.Sprintf("%s/%d", topicURL, p.PostNumber),
			Raw:               p.Raw,
			Cooked:            p.Cooked,
			CreatedAt:         p.CreatedAt,
			UpdatedAt:         p.UpdatedAt,
			ReplyToPostNumber: p.ReplyToPostNumber,
			Author:            author,
		}
		for _, action := range p.ActionsSummary {
			if action.ID == likeActionType {
				post.LikeCount = action.Count
			}
		}
		if p.AcceptedAnswer || (acceptedNumber != 0 && p.PostNumber == acceptedNumber) {
			id := PostID(p.ID)
			topic.AcceptedAnswerPostID = &id
		}
		topic.Posts = append(topic.Posts, post)
	}

	// the created_by card and the first post author are the same person
	if topic.Author != nil {
		if author, ok := authors[topic.Author.Username]; ok {
			topic.Author = author
		}
	}
	return topic
}

// FetchCategory loads a category page with its parent and subcategories
func (c *ForumClient) FetchCategory(ctx context.Context, id int64) (*PageData, error) {
	slog.Debug("Fetching category from forum API", "category_id", id)
	category, err := c.fetchCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PageData{Category: category}, nil
}

func (c *ForumClient) fetchCategory(ctx context.Context, id int64) (*CategoryData, error) {
	var res struct {
		Category forumCategory `json:"category"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/c/%d/show.json", id), &res); err != nil {
		return nil, err
	}

	raw := res.Category
	topicCount := raw.TopicCount
	category := &CategoryData{
		ID:          raw.ID,
		Name:        raw.Name,
		Slug:        raw.Slug,
		URL:         fmt.Sprintf("%s/c/%s/%d", c.baseURL, raw.Slug, raw.ID),
		Description: raw.Description,
		Color:       raw.Color,
		TopicCount:  &topicCount,
		PostCount:   raw.PostCount,
	}
	for i := range raw.SubcategoryList {
		category.Subcategories = append(category.Subcategories, c.categoryRef(&raw.SubcategoryList[i]))
	}

	if raw.ParentCategoryID != 0 && raw.ParentCategoryID != raw.ID {
		var parent struct {
			Category forumCategory `json:"category"`
		}
		if err := c.getJSON(ctx, fmt.Sprintf("/c/%d/show.json", raw.ParentCategoryID), &parent); err != nil {
			slog.Warn("Failed to fetch parent category", "error", err, "category_id", raw.ParentCategoryID)
		} else {
			ref := c.categoryRef(&parent.Category)
			category.Parent = &ref
		}
	}
	return category, nil
}

func (c *ForumClient) categoryRef(raw *forumCategory) CategoryRef {
	return CategoryRef{
		ID:          raw.ID,
		Name:        raw.Name,
		Slug:        raw.Slug,
		URL:         fmt.Sprintf("%s/c/%s/%d", c.baseURL, raw.Slug, raw.ID),
		Description: raw.Description,
		Color:       raw.Color,
		TopicCount:  raw.TopicCount,
		PostCount:   raw.PostCount,
	}
}

// FetchUser loads a user profile and, when enabled, its activity summary
func (c *ForumClient) FetchUser(ctx context.Context, username string) (*PageData, error) {
	slog.Debug("Fetching user from forum API", "username", username)

	var res struct {
		User forumUser `json:"user"`
	}
	if err := c.getJSON(ctx, "/u/"+url.PathEscape(username)+".json", &res); err != nil {
		return nil, err
	}

	user := c.userFromForum(&res.User)
	if c.fetchStats {
		c.applyUserStats(ctx, []*UserData{user})
	}
	return &PageData{User: user}, nil
}

func (c *ForumClient) userFromForum(raw *forumUser) *UserData {
	updatedAt := raw.LastSeenAt
	if updatedAt.IsZero() {
		updatedAt = raw.CreatedAt
	}
	return &UserData{
		ID:             raw.ID,
		Username:       raw.Username,
		Name:           raw.Name,
		URL:            c.baseURL + "/u/" + url.PathEscape(raw.Username),
		AvatarTemplate: raw.AvatarTemplate,
		Title:          raw.Title,
		Bio:            raw.BioCooked,
		Location:       raw.Location,
		Website:        raw.Website,
		CreatedAt:      raw.CreatedAt,
		UpdatedAt:      updatedAt,
		LastSeenAt:     raw.LastSeenAt,
		TrustLevel:     raw.TrustLevel,
		Admin:          raw.Admin,
		Moderator:      raw.Moderator,
	}
}

// applyUserStats loads activity summaries concurrently and copies them onto
// every matching user. Users whose summary fails keep zero counters.
func (c *ForumClient) applyUserStats(ctx context.Context, users []*UserData) {
	byName := make(map[string][]*UserData)
	var usernames []string
	for _, user := range users {
		if user == nil || user.Username == "" {
			continue
		}
		if _, seen := byName[user.Username]; !seen {
			usernames = append(usernames, user.Username)
		}
		byName[user.Username] = append(byName[user.Username], user)
	}
	if len(usernames) == 0 {
		return
	}

	// Create worker pool for concurrent API calls
	const numWorkers = 5
	workChan := make(chan string, len(usernames))
	resultChan := make(chan statsResult, len(usernames))
	var wg sync.WaitGroup

	for range min(numWorkers, len(usernames)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for username := range workChan {
				resultChan <- c.fetchUserSummary(ctx, username)
			}
		}()
	}

	for _, username := range usernames {
		workChan <- username
	}
	close(workChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	updated := 0
	for result := range resultChan {
		if result.err != nil {
			slog.Warn("Failed to fetch user summary", "error", result.err, "username", result.username)
			continue
		}
		for _, user := range byName[result.username] {
			user.TopicCount = result.summary.TopicCount
			user.PostCount = result.summary.PostCount
			user.LikesGiven = result.summary.LikesGiven
			user.LikesReceived = result.summary.LikesReceived
			user.DaysVisited = result.summary.DaysVisited
			user.PostsReadCount = result.summary.PostsReadCount
			user.TimeRead = result.summary.TimeRead
		}
		updated++
	}
	slog.Debug("Completed user stats update", "updated", updated, "requested", len(usernames))
}

func (c *ForumClient) fetchUserSummary(ctx context.Context, username string) statsResult {
	var res struct {
		UserSummary forumUserSummary `json:"user_summary"`
	}
	err := c.getJSON(ctx, "/u/"+url.PathEscape(username)+"/summary.json", &res)
	return statsResult{username: username, summary: res.UserSummary, err: err}
}
