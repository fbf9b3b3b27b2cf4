package main

func buildCollectionPage(b *buildContext) (*Node, error) {
	category := b.data.Category
	topicCount := 0
	if category.TopicCount != nil {
		topicCount = *category.TopicCount
	}

	page := compact(newRootNode("CollectionPage",
		"@id", category.URL,
		"url", category.URL,
		"name", category.Name,
		"description", category.Description,
		"inLanguage", b.lang.Language,
		"isPartOf", reference(b.websiteID()),
		"about", compact(newNode("Thing", "name", category.Name, "description", category.Description)),
		"hasPart", subcategorySchemas(category),
		"numberOfItems", topicCount,
		"interactionStatistic", nodeList(
			interactionCounter("WriteAction", topicCount, b.t(keyNumberOfTopics, nil)),
			interactionCounter("CommentAction", category.PostCount, b.t(keyNumberOfReplies, nil)),
		),
	))
	if err := requireFields(page, "url", "name"); err != nil {
		return nil, err
	}
	return page, nil
}

func subcategorySchemas(category *CategoryData) []*Node {
	var parts []*Node
	for _, sub := range category.Subcategories {
		part := compact(newNode("CollectionPage",
			"@id", sub.URL,
			"url", sub.URL,
			"name", sub.Name,
			"description", sub.Description,
			"isPartOf", reference(category.URL),
			"numberOfItems", sub.TopicCount,
		))
		if requireFields(part, "url", "name") != nil {
			continue
		}
		parts = append(parts, part)
	}
	return parts
}
