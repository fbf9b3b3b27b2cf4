package main

// Variant is the kind of page being described
type Variant int

const (
	VariantDefault Variant = iota
	VariantTopic
	VariantCategory
	VariantUser
)

func (v Variant) String() string {
	switch v {
	case VariantTopic:
		return "topic"
	case VariantCategory:
		return "category"
	case VariantUser:
		return "user"
	default:
		return "default"
	}
}

// classify picks the page variant. The checks are ordered: a record that
// satisfies several predicates resolves to the first one that matches.
func classify(data *PageData) Variant {
	if data == nil {
		return VariantDefault
	}
	switch {
	case data.Topic != nil && data.Topic.Title != "" && data.Topic.Posts != nil:
		return VariantTopic
	case data.Category != nil && data.Category.TopicCount != nil:
		return VariantCategory
	case data.User != nil && data.User.Username != "":
		return VariantUser
	default:
		return VariantDefault
	}
}

// rejectedVariants lists populated records that were skipped because their
// discriminating fields were missing.
func rejectedVariants(data *PageData, chosen Variant) []string {
	if data == nil {
		return nil
	}
	var rejected []string
	if data.Topic != nil && chosen != VariantTopic && (data.Topic.Title == "" || data.Topic.Posts == nil) {
		rejected = append(rejected, VariantTopic.String())
	}
	if data.Category != nil && chosen != VariantCategory && data.Category.TopicCount == nil {
		rejected = append(rejected, VariantCategory.String())
	}
	if data.User != nil && chosen != VariantUser && data.User.Username == "" {
		rejected = append(rejected, VariantUser.String())
	}
	return rejected
}
