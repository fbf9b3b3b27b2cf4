package main

import "strings"

const (
	avatarSize    = 240
	anonymousName = "Anonymous"
)

// displayName prefers the full name, then the username
func displayName(user *UserData) string {
	if user == nil {
		return ""
	}
	if name := strings.TrimSpace(user.Name); name != "" {
		return name
	}
	return strings.TrimSpace(user.Username)
}

// profileName never returns an empty string, even for stale cached input
func profileName(user *UserData) string {
	if name := displayName(user); name != "" {
		return name
	}
	return anonymousName
}

func buildProfilePage(b *buildContext) (*Node, error) {
	user := b.data.User

	page := compact(newRootNode("ProfilePage",
		"@id", user.URL,
		"url", user.URL,
		"name", b.t(keyProfilePageTitle, map[string]string{"user_name": profileName(user)}),
		"inLanguage", b.lang.Language,
		"isPartOf", reference(b.websiteID()),
		"mainEntity", profilePersonSchema(b, user),
	))
	if err := requireFields(page, "url"); err != nil {
		return nil, err
	}
	return page, nil
}

func profilePersonSchema(b *buildContext, user *UserData) *Node {
	var sameAs []string
	if website := strings.TrimSpace(user.Website); website != "" {
		sameAs = []string{website}
	}

	var stats []*Node
	if b.cfg.IncludeUserStats {
		stats = nodeList(
			interactionCounter("WriteAction", user.TopicCount, b.t(keyCreatedTopics, nil)),
			interactionCounter("CommentAction", user.PostCount, b.t(keyWrittenReplies, nil)),
			interactionCounter("LikeAction", user.LikesReceived, b.t(keyReceivedLikes, nil)),
			interactionCounter("ReadAction", user.PostsReadCount, b.t(keyReadPosts, nil)),
		)
	}

	return compact(newNode("Person",
		"@id", personID(user),
		"identifier", user.Username,
		"name", profileName(user),
		"url", user.URL,
		"image", imageObject(user.AvatarURL, avatarSize),
		"description", user.Bio,
		"sameAs", sameAs,
		"interactionStatistic", stats,
		"dateCreated", iso8601(user.CreatedAt),
	))
}

func personID(user *UserData) string {
	if user.URL == "" {
		return ""
	}
	return user.URL + "#person"
}
