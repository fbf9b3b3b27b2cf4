package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCompact_Idempotent(t *testing.T) {
	build := func() *Node {
		return newNode("Thing",
			"name", "kept",
			"empty", "",
			"nil", nil,
			"list", []*Node{},
			"strings", []string(nil),
			"child", newNode(""),
			"nilChild", (*Node)(nil),
			"zero", 0,
			"flag", false,
		)
	}

	once := compact(build())
	twice := compact(compact(build()))

	a, err := json.Marshal(once)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	b, err := json.Marshal(twice)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("compact is not idempotent: %s vs %s", a, b)
	}

	expected := `{"@type":"Thing","name":"kept","zero":0,"flag":false}`
	if string(a) != expected {
		t.Errorf("Expected %s, got %s", expected, a)
	}
}

func TestInteractionCounter(t *testing.T) {
	if counter := interactionCounter("LikeAction", 0, "likes"); counter != nil {
		t.Error("Zero count should produce no counter")
	}

	counter := interactionCounter("LikeAction", 5, "likes")
	if counter == nil {
		t.Fatal("Expected a counter for count 5")
	}
	if v, _ := counter.Get("userInteractionCount"); v != 5 {
		t.Errorf("Expected count 5, got %v", v)
	}
	if v, _ := counter.Get("interactionType"); v != "https://schema.org/LikeAction" {
		t.Errorf("Unexpected interaction type %v", v)
	}

	noDescription := interactionCounter("ViewAction", 3, "")
	if _, ok := noDescription.Get("description"); ok {
		t.Error("Empty description should be omitted")
	}
}

func TestCommentCount(t *testing.T) {
	testCases := []struct {
		postsCount int
		expected   int
	}{
		{0, 0},
		{1, 0},
		{5, 4},
		{-3, 0},
	}

	for _, tc := range testCases {
		if got := commentCount(tc.postsCount); got != tc.expected {
			t.Errorf("commentCount(%d) = %d, want %d", tc.postsCount, got, tc.expected)
		}
	}
}

func TestTruncateText(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		length   int
		expected string
	}{
		{"short text unchanged", "hello world", 50, "hello world"},
		{"blank", "   ", 10, ""},
		{"cuts at word boundary", "the quick brown fox jumps", 15, "the quick..."},
		{"strips html", "<p>Hello <b>there</b></p>", 50, "Hello there"},
		{"multibyte runes", "привет мир как дела", 13, "привет мир..."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateText(tc.text, tc.length)
			if got != tc.expected {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tc.text, tc.length, got, tc.expected)
			}
			if len([]rune(got)) > tc.length {
				t.Errorf("Result %q exceeds %d runes", got, tc.length)
			}
		})
	}
}

func TestRequireFields(t *testing.T) {
	node := compact(newNode("Answer", "url", "https://example.com", "text", ""))

	err := requireFields(node, "url", "text")
	if err == nil {
		t.Fatal("Expected a missing field error")
	}
	missing, ok := err.(*MissingFieldError)
	if !ok {
		t.Fatalf("Expected *MissingFieldError, got %T", err)
	}
	if missing.NodeType != "Answer" || missing.Field != "text" {
		t.Errorf("Unexpected error contents: %+v", missing)
	}

	if err := requireFields(node, "url"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNodeSerialization_KeyOrderAndEscaping(t *testing.T) {
	node := newRootNode("Thing",
		"@id", "https://example.com/#thing",
		"name", "</script><script>alert(1)</script>",
	)
	out, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	s := string(out)

	if !strings.HasPrefix(s, `{"@context":"https://schema.org","@type":"Thing","@id"`) {
		t.Errorf("Keys out of order: %s", s)
	}
	if strings.Contains(s, "</script>") {
		t.Errorf("Closing script tag must be escaped: %s", s)
	}
}

func TestISO8601(t *testing.T) {
	if got := iso8601(time.Time{}); got != "" {
		t.Errorf("Zero time should be empty, got %q", got)
	}
	ts := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	if got := iso8601(ts); got != "2024-03-05T10:30:00Z" {
		t.Errorf("Unexpected timestamp %q", got)
	}
}
