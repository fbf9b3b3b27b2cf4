package main

import "strings"

// Translator looks up a localized string for the given locale. Placeholders
// are written as {name} and filled from args.
type Translator interface {
	T(locale, key string, args map[string]string) string
}

// Translation keys
const (
	keyBreadcrumbHome     = "breadcrumb_home"
	keyProfilePageTitle   = "profile_page_title"
	keyCreatedTopics      = "interaction_created_topics"
	keyWrittenReplies     = "interaction_written_replies"
	keyReceivedLikes      = "interaction_received_likes"
	keyReadPosts          = "interaction_read_posts"
	keyNumberOfTopics     = "interaction_number_of_topics"
	keyNumberOfReplies    = "interaction_number_of_replies"
	keyTwitterReplies     = "twitter_replies"
	keyTwitterCategory    = "twitter_category"
	keyTwitterTopics      = "twitter_topics"
	keyTwitterPosts       = "twitter_posts"
	keyTwitterLikes       = "twitter_likes_received"
	defaultTranslationTag = "en"
)

var builtinTranslations = map[string]map[string]string{
	"en": {
		keyBreadcrumbHome:   "Home",
		keyProfilePageTitle: "{user_name}'s profile",
		keyCreatedTopics:    "Topics created",
		keyWrittenReplies:   "Replies written",
		keyReceivedLikes:    "Likes received",
		keyReadPosts:        "Posts read",
		keyNumberOfTopics:   "Number of topics",
		keyNumberOfReplies:  "Number of replies",
		keyTwitterReplies:   "Replies",
		keyTwitterCategory:  "Category",
		keyTwitterTopics:    "Topics",
		keyTwitterPosts:     "Posts",
		keyTwitterLikes:     "Likes received",
	},
	"ru": {
		keyBreadcrumbHome:   "Главная",
		keyProfilePageTitle: "Профиль {user_name}",
		keyCreatedTopics:    "Создано тем",
		keyWrittenReplies:   "Написано ответов",
		keyReceivedLikes:    "Получено лайков",
		keyReadPosts:        "Прочитано сообщений",
		keyNumberOfTopics:   "Количество тем",
		keyNumberOfReplies:  "Количество ответов",
		keyTwitterReplies:   "Ответы",
		keyTwitterCategory:  "Категория",
		keyTwitterTopics:    "Темы",
		keyTwitterPosts:     "Сообщения",
		keyTwitterLikes:     "Получено лайков",
	},
}

// tableTranslator serves the built-in tables, with optional overrides that
// apply to every locale.
type tableTranslator struct {
	overrides map[string]string
}

func newTranslator(overrides map[string]string) *tableTranslator {
	return &tableTranslator{overrides: overrides}
}

func (t *tableTranslator) T(locale, key string, args map[string]string) string {
	text, ok := t.overrides[key]
	if !ok {
		text, ok = builtinTranslations[locale][key]
	}
	if !ok {
		text, ok = builtinTranslations[defaultTranslationTag][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
