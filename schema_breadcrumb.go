package main

// maxCategoryDepth bounds the breadcrumb category chain: a category and its
// parent.
const maxCategoryDepth = 2

func buildBreadcrumb(b *buildContext) (*Node, error) {
	url := b.pageURL()
	if url == "" {
		url = b.cfg.BaseURL
	}

	items := []*Node{listItem(1, b.t(keyBreadcrumbHome, nil), b.cfg.BaseURL)}

	switch b.variant {
	case VariantTopic:
		topic := b.data.Topic
		chain := categoryChain(topic.Category)
		items = append(items, chainItems(chain)...)
		items = append(items, listItem(topicBreadcrumbPosition(len(chain)), topic.Title, topic.URL))
	case VariantCategory:
		items = append(items, chainItems(categoryChain(b.data.Category))...)
	case VariantUser:
		items = append(items, listItem(2, displayName(b.data.User), b.data.User.URL))
	}

	var valid []*Node
	for _, item := range items {
		if err := requireFields(item, "name", "item"); err != nil {
			return nil, err
		}
		valid = append(valid, item)
	}

	return newRootNode("BreadcrumbList",
		"@id", url+"#breadcrumb",
		"itemListElement", valid,
	), nil
}

func listItem(position int, name, item string) *Node {
	return compact(newNode("ListItem",
		"position", position,
		"name", name,
		"item", item,
	))
}

// chainItems numbers a root-first category chain starting at position 2
func chainItems(chain []CategoryRef) []*Node {
	items := make([]*Node, 0, len(chain))
	for i, category := range chain {
		items = append(items, listItem(2+i, category.Name, category.URL))
	}
	return items
}

func topicBreadcrumbPosition(chainLength int) int {
	return 2 + chainLength
}

// categoryChain returns the category and its parent, root first. Parents are
// shallow refs with no parent of their own, so the chain never exceeds
// maxCategoryDepth. A parent pointing back at the category is ignored.
func categoryChain(category *CategoryData) []CategoryRef {
	if category == nil {
		return nil
	}
	chain := make([]CategoryRef, 0, maxCategoryDepth)
	if parent := category.Parent; parent != nil && parent.ID != category.ID {
		chain = append(chain, *parent)
	}
	return append(chain, category.ref())
}

// ref returns the shallow copy of a category
func (c *CategoryData) ref() CategoryRef {
	ref := CategoryRef{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		URL:         c.URL,
		Description: c.Description,
		Color:       c.Color,
		PostCount:   c.PostCount,
	}
	if c.TopicCount != nil {
		ref.TopicCount = *c.TopicCount
	}
	return ref
}
