package main

import "strings"

const (
	logoSize          = 512
	searchQueryInput  = "required name=search_term_string"
	searchURLTemplate = "/search?q={search_term_string}"
)

func buildWebsite(b *buildContext) (*Node, error) {
	if !b.cfg.EnableWebsiteSchema {
		return nil, nil
	}

	base := b.cfg.BaseURL
	website := compact(newRootNode("WebSite",
		"@id", b.websiteID(),
		"name", b.cfg.SiteTitle,
		"url", base,
		"description", b.cfg.SiteDescription,
		"inLanguage", b.lang.Language,
		"publisher", organizationSchema(b),
		"potentialAction", searchActionSchema(base),
	))
	if err := requireFields(website, "name", "url"); err != nil {
		return nil, err
	}
	return website, nil
}

func organizationSchema(b *buildContext) *Node {
	base := b.cfg.BaseURL
	return compact(newNode("Organization",
		"@id", base+"/#organization",
		"name", b.cfg.SiteTitle,
		"url", base,
		"logo", imageObject(b.cfg.siteLogoURL(), logoSize),
		"sameAs", organizationLinks(b.cfg),
		"contactPoint", contactPointSchema(b),
	))
}

// organizationLinks lists configured profiles in a fixed order: regional
// social networks, video, short video, professional, international social,
// then code repositories.
func organizationLinks(cfg *Config) []string {
	candidates := []string{
		cfg.Social.VK,
		cfg.Social.Telegram,
		cfg.Social.YouTube,
		cfg.Social.Dzen,
		cfg.Social.TikTok,
		cfg.Social.TenChat,
		cfg.Social.LinkedIn,
		twitterProfileURL(cfg.Social.Twitter),
		cfg.Social.Facebook,
		cfg.Social.Instagram,
		cfg.Repo.GitHub,
		cfg.Repo.GitLab,
		cfg.Repo.SourceCraft,
		cfg.Repo.Bitbucket,
	}

	var links []string
	for _, link := range candidates {
		if link = strings.TrimSpace(link); link != "" {
			links = append(links, link)
		}
	}
	return links
}

// twitterProfileURL turns a bare @handle into a profile URL
func twitterProfileURL(handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" || strings.HasPrefix(handle, "http") {
		return handle
	}
	return "https://twitter.com/" + strings.TrimPrefix(handle, "@")
}

func contactPointSchema(b *buildContext) *Node {
	if b.cfg.ContactEmail == "" {
		return nil
	}
	return compact(newNode("ContactPoint",
		"contactType", "customer support",
		"email", b.cfg.ContactEmail,
		"availableLanguage", nonEmpty(b.lang.Language),
	))
}

func searchActionSchema(base string) *Node {
	return newNode("SearchAction",
		"target", newNode("EntryPoint", "urlTemplate", base+searchURLTemplate),
		"query-input", searchQueryInput,
	)
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
