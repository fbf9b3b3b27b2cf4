package main

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const schemaContext = "https://schema.org"

// Node is a JSON-LD object. Keys serialize in insertion order so @context,
// @type and @id always lead.
type Node = orderedmap.OrderedMap[string, any]

// MissingFieldError reports a node that lacks a field it cannot be emitted
// without. Builders return it and the caller drops the node.
type MissingFieldError struct {
	NodeType string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q on %s", e.Field, e.NodeType)
}

// newNode creates a node of the given type followed by alternating
// key/value pairs.
func newNode(typ string, kv ...any) *Node {
	node := orderedmap.New[string, any]()
	if typ != "" {
		node.Set("@type", typ)
	}
	setFields(node, kv...)
	return node
}

// newRootNode is newNode with the schema.org @context in front
func newRootNode(typ string, kv ...any) *Node {
	node := orderedmap.New[string, any]()
	node.Set("@context", schemaContext)
	node.Set("@type", typ)
	setFields(node, kv...)
	return node
}

func setFields(node *Node, kv ...any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		node.Set(key, kv[i+1])
	}
}

// compact removes keys whose values are nil or empty. It only looks at the
// top level of the node; nested nodes are compacted when they are built.
func compact(node *Node) *Node {
	if node == nil {
		return nil
	}
	var empty []string
	for pair := node.Oldest(); pair != nil; pair = pair.Next() {
		if isEmptyValue(pair.Value) {
			empty = append(empty, pair.Key)
		}
	}
	for _, key := range empty {
		node.Delete(key)
	}
	return node
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return val == ""
	case *Node:
		return val == nil || val.Len() == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// requireFields checks that each named field is present and non-empty
func requireFields(node *Node, fields ...string) error {
	typ, _ := node.Get("@type")
	for _, field := range fields {
		v, ok := node.Get(field)
		if !ok || isEmptyValue(v) {
			return &MissingFieldError{NodeType: fmt.Sprint(typ), Field: field}
		}
	}
	return nil
}

// nodeList drops absent entries so a list never carries nulls
func nodeList(nodes ...*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func reference(id string) *Node {
	if id == "" {
		return nil
	}
	node := orderedmap.New[string, any]()
	node.Set("@id", id)
	return node
}

// interactionCounter returns nil for a zero count so validators never see an
// empty statistic.
func interactionCounter(action string, count int, description string) *Node {
	if count == 0 {
		return nil
	}
	return compact(newNode("InteractionCounter",
		"interactionType", schemaContext+"/"+action,
		"userInteractionCount", count,
		"description", description,
	))
}

func imageObject(url string, size int) *Node {
	if url == "" {
		return nil
	}
	return newNode("ImageObject", "url", url, "width", size, "height", size)
}

func iso8601(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// truncateText shortens text to at most length runes, cutting at the last
// space and appending an ellipsis. HTML is stripped first.
func truncateText(text string, length int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if strings.Contains(text, "<") {
		text = stripTags(text)
	}
	const omission = "..."
	runes := []rune(text)
	if len(runes) <= length {
		return text
	}
	stop := length - len(omission)
	if stop <= 0 {
		return omission[:length]
	}
	cut := string(runes[:stop])
	if i := strings.LastIndex(string(runes[:stop+1]), " "); i > 0 {
		cut = string(runes[:stop+1])[:i]
	}
	return strings.TrimRight(cut, " ") + omission
}

func commentCount(postsCount int) int {
	return max(postsCount-1, 0)
}
