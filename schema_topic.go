package main

const commentTextLength = 500

// contentTypeSchemas maps the configured content type to a schema.org type
var contentTypeSchemas = map[string]string{
	"discussion": "DiscussionForumPosting",
	"article":    "Article",
	"news":       "NewsArticle",
	"review":     "Review",
	"recipe":     "Recipe",
	"event":      "Event",
}

const defaultContentSchema = "DiscussionForumPosting"

func buildTopicPage(b *buildContext) (*Node, error) {
	if b.contentType == "qa" {
		return buildQAPage(b)
	}
	return buildContentPage(b)
}

func buildQAPage(b *buildContext) (*Node, error) {
	topic := b.data.Topic

	page := compact(newRootNode("QAPage",
		"@id", topic.URL,
		"url", topic.URL,
		"name", topic.Title,
		"description", topic.Excerpt,
		"inLanguage", b.lang.Language,
		"isPartOf", reference(b.websiteID()),
		"breadcrumb", breadcrumbReference(topic.URL),
		"mainEntity", isolate("Question", func() (*Node, error) { return questionSchema(b) }),
	))
	if err := requireFields(page, "url", "name"); err != nil {
		return nil, err
	}
	return page, nil
}

func buildContentPage(b *buildContext) (*Node, error) {
	topic := b.data.Topic
	schemaType, ok := contentTypeSchemas[b.contentType]
	if !ok {
		schemaType = defaultContentSchema
	}

	var body string
	if first := firstPost(topic); first != nil {
		body = first.Raw
	}

	page := compact(newRootNode(schemaType,
		"@id", topic.URL,
		"url", topic.URL,
		"headline", topic.Title,
		"name", topic.Title,
		"description", topic.Excerpt,
		"inLanguage", b.lang.Language,
		"isPartOf", reference(b.websiteID()),
		"breadcrumb", breadcrumbReference(topic.URL),
		"articleBody", body,
		"datePublished", iso8601(topic.CreatedAt),
		"dateModified", iso8601(topic.UpdatedAt),
		"author", authorSchema(b, topic.Author),
		"commentCount", commentCount(topic.PostsCount),
		"interactionStatistic", topicStatistics(topic),
		"comment", flatCommentSchemas(b),
	))
	if err := requireFields(page, "url", "name"); err != nil {
		return nil, err
	}
	return page, nil
}

func questionSchema(b *buildContext) (*Node, error) {
	topic := b.data.Topic
	first := firstPost(topic)
	if first == nil {
		return nil, &MissingFieldError{NodeType: "Question", Field: "text"}
	}

	count := commentCount(topic.PostsCount)
	question := compact(newNode("Question",
		"@id", topic.URL+"#question",
		"name", topic.Title,
		"text", first.Raw,
		"dateCreated", iso8601(topic.CreatedAt),
		"dateModified", iso8601(topic.UpdatedAt),
		"upvoteCount", topic.LikeCount,
		"answerCount", count,
		"commentCount", count,
		"author", authorSchema(b, topic.Author),
		"about", tagSchemas(topic.Tags),
		"interactionStatistic", topicStatistics(topic),
		"acceptedAnswer", acceptedAnswerSchema(b),
		"suggestedAnswer", suggestedAnswerSchemas(b),
	))
	if err := requireFields(question, "name", "text"); err != nil {
		return nil, err
	}
	return question, nil
}

// acceptedPost finds the accepted answer by id among the topic's posts. An
// id with no matching post is not an error.
func acceptedPost(topic *TopicData) *PostData {
	if topic.AcceptedAnswerPostID == nil {
		return nil
	}
	id := int64(*topic.AcceptedAnswerPostID)
	for i := range topic.Posts {
		if topic.Posts[i].ID == id {
			return &topic.Posts[i]
		}
	}
	return nil
}

func acceptedAnswerSchema(b *buildContext) *Node {
	post := acceptedPost(b.data.Topic)
	if post == nil {
		return nil
	}
	return isolate("AcceptedAnswer", func() (*Node, error) { return answerSchema(b, post, true) })
}

// suggestedAnswerSchemas covers every reply except the first post and the
// accepted answer, capped at MaxAnswers.
func suggestedAnswerSchemas(b *buildContext) []*Node {
	topic := b.data.Topic
	first := firstPost(topic)
	accepted := acceptedPost(topic)

	var answers []*Node
	for i := range topic.Posts {
		post := &topic.Posts[i]
		if post == first || (accepted != nil && post.ID == accepted.ID) {
			continue
		}
		if len(answers) >= b.cfg.MaxAnswers {
			break
		}
		if answer := isolate("SuggestedAnswer", func() (*Node, error) { return answerSchema(b, post, false) }); answer != nil {
			answers = append(answers, answer)
		}
	}
	return answers
}

func answerSchema(b *buildContext, post *PostData, accepted bool) (*Node, error) {
	answer := newNode("Answer",
		"@id", answerID(post),
		"url", post.URL,
		"text", post.Raw,
		"dateCreated", iso8601(post.CreatedAt),
		"dateModified", iso8601(post.UpdatedAt),
		"upvoteCount", post.LikeCount,
		"author", authorSchema(b, post.Author),
		"comment", nestedCommentSchemas(b, post),
	)
	if accepted {
		answer.Set("acceptedAnswerStatus", "Accepted")
	}
	compact(answer)
	if err := requireFields(answer, "url", "text"); err != nil {
		return nil, err
	}
	return answer, nil
}

func answerID(post *PostData) string {
	if post.URL == "" {
		return ""
	}
	return post.URL + "#answer"
}

// nestedCommentSchemas collects the direct replies to an answer
func nestedCommentSchemas(b *buildContext, parent *PostData) []*Node {
	var comments []*Node
	for i := range b.data.Topic.Posts {
		reply := &b.data.Topic.Posts[i]
		if reply.ReplyToPostNumber == nil || *reply.ReplyToPostNumber != parent.PostNumber || reply.ID == parent.ID {
			continue
		}
		if len(comments) >= b.cfg.MaxComments {
			break
		}
		comment := compact(newNode("Comment",
			"@id", commentID(reply),
			"url", reply.URL,
			"text", truncateText(reply.Raw, commentTextLength),
			"dateCreated", iso8601(reply.CreatedAt),
			"upvoteCount", reply.LikeCount,
			"author", authorSchema(b, reply.Author),
			"parentItem", reference(answerID(parent)),
		))
		if requireFields(comment, "url", "text") != nil {
			continue
		}
		comments = append(comments, comment)
	}
	return comments
}

// flatCommentSchemas lists every reply as an unthreaded Comment
func flatCommentSchemas(b *buildContext) []*Node {
	first := firstPost(b.data.Topic)

	var comments []*Node
	for i := range b.data.Topic.Posts {
		post := &b.data.Topic.Posts[i]
		if post == first {
			continue
		}
		if len(comments) >= b.cfg.MaxAnswers {
			break
		}
		comment := compact(newNode("Comment",
			"@id", commentID(post),
			"url", post.URL,
			"text", post.Raw,
			"dateCreated", iso8601(post.CreatedAt),
			"dateModified", iso8601(post.UpdatedAt),
			"upvoteCount", post.LikeCount,
			"author", authorSchema(b, post.Author),
		))
		if requireFields(comment, "url", "text") != nil {
			continue
		}
		comments = append(comments, comment)
	}
	return comments
}

func commentID(post *PostData) string {
	if post.URL == "" {
		return ""
	}
	return post.URL + "#comment"
}

// authorSchema maps a post or topic author onto a Person. A user without
// any usable name is dropped.
func authorSchema(b *buildContext, user *UserData) *Node {
	if user == nil {
		return nil
	}

	var stats []*Node
	if b.cfg.IncludeUserStats {
		stats = nodeList(
			interactionCounter("WriteAction", user.TopicCount, b.t(keyCreatedTopics, nil)),
			interactionCounter("CommentAction", user.PostCount, b.t(keyWrittenReplies, nil)),
			interactionCounter("LikeAction", user.LikesReceived, b.t(keyReceivedLikes, nil)),
		)
	}

	person := compact(newNode("Person",
		"@id", personID(user),
		"name", displayName(user),
		"identifier", user.Username,
		"url", user.URL,
		"image", imageObject(user.AvatarURL, avatarSize),
		"interactionStatistic", stats,
	))
	if requireFields(person, "name") != nil {
		return nil
	}
	return person
}

func tagSchemas(tags []TagData) []*Node {
	var out []*Node
	for _, tag := range tags {
		node := compact(newNode("Thing",
			"@id", tag.URL,
			"name", tag.Name,
			"description", tag.Description,
		))
		if requireFields(node, "name") != nil {
			continue
		}
		out = append(out, node)
	}
	return out
}

func topicStatistics(topic *TopicData) []*Node {
	return nodeList(
		interactionCounter("ViewAction", topic.Views, ""),
		interactionCounter("LikeAction", topic.LikeCount, ""),
		interactionCounter("CommentAction", topic.ReplyCount, ""),
	)
}

func breadcrumbReference(url string) *Node {
	if url == "" {
		return nil
	}
	return reference(url + "#breadcrumb")
}

func firstPost(topic *TopicData) *PostData {
	for i := range topic.Posts {
		if topic.Posts[i].IsFirstPost {
			return &topic.Posts[i]
		}
	}
	if len(topic.Posts) > 0 {
		return &topic.Posts[0]
	}
	return nil
}
