package main

import (
	"errors"
	"strings"
	"testing"
)

func TestCoordinator_SegmentOrder(t *testing.T) {
	result := NewCoordinator(&PageData{Topic: createTestQATopic()}, testConfig(), LanguageOptions{}).Generate()

	if result.Body != "" {
		t.Errorf("Body should be empty, got %q", result.Body)
	}

	head := result.Head
	markers := []string{
		`name="llms-txt"`,
		`property="og:locale"`,
		`name="twitter:card"`,
		`<script type="application/ld+json">`,
	}
	last := -1
	for _, marker := range markers {
		idx := strings.Index(head, marker)
		if idx < 0 {
			t.Fatalf("Head is missing %s", marker)
		}
		if idx < last {
			t.Errorf("%s appears out of order", marker)
		}
		last = idx
	}
	if !strings.Contains(head, `content="https://forum.example.com/llms-full.txt"`) {
		t.Error("Expected llms-full.txt hint")
	}
	if !strings.Contains(head, `content="en_US"`) {
		t.Error("Missing language should fall back to en-US")
	}
}

func TestCoordinator_EscapesScriptClose(t *testing.T) {
	topic := createTestQATopic()
	topic.Title = "Break out </script><script>alert(1)</script>"

	head := NewCoordinator(&PageData{Topic: topic}, testConfig(), languageOptionsFor("en-US")).Generate().Head

	start := strings.Index(head, `<script type="application/ld+json">`)
	if start < 0 {
		t.Fatal("Expected a JSON-LD block")
	}
	block := head[start+len(`<script type="application/ld+json">`):]
	if end := strings.Index(block, "</script>"); end != len(block)-len("</script>") {
		t.Errorf("JSON-LD block closed early at %d", end)
	}
}

func TestCoordinator_DisabledSchemasStillRenderMeta(t *testing.T) {
	cfg := testConfig()
	cfg.EnableWebsiteSchema = false
	cfg.EnableBreadcrumbs = false

	head := NewCoordinator(&PageData{}, cfg, languageOptionsFor("en-US")).Generate().Head
	if strings.Contains(head, "ld+json") {
		t.Errorf("Default page with no enabled graphs should have no JSON-LD: %s", head)
	}
	if !strings.Contains(head, "llms-txt") || !strings.Contains(head, "og:locale") {
		t.Errorf("Meta segments should still render: %s", head)
	}
}

func TestIsolate(t *testing.T) {
	testCases := []struct {
		name     string
		fn       func() (string, error)
		expected string
	}{
		{"success", func() (string, error) { return "ok", nil }, "ok"},
		{"error", func() (string, error) { return "partial", errors.New("boom") }, ""},
		{"missing field", func() (string, error) {
			return "partial", &MissingFieldError{NodeType: "Answer", Field: "text"}
		}, ""},
		{"panic", func() (string, error) { panic("kaboom") }, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isolate(tc.name, tc.fn); got != tc.expected {
				t.Errorf("isolate() = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestCoordinator_BrokenTopicDoesNotBreakSiblings(t *testing.T) {
	// A topic whose posts slice is set but empty classifies as a topic and
	// has no first post; the question is dropped but everything else renders.
	cfg := testConfig()
	cfg.ContentType = "qa"
	topic := &TopicData{Title: "Empty", URL: "https://forum.example.com/t/empty/1", Posts: []PostData{}}

	head := NewCoordinator(&PageData{Topic: topic}, cfg, languageOptionsFor("en-US")).Generate().Head
	if !strings.Contains(head, `"QAPage"`) {
		t.Errorf("Expected QAPage without a question: %s", head)
	}
	if strings.Contains(head, `"Question"`) {
		t.Error("Question without text should be omitted")
	}
	if !strings.Contains(head, "twitter:card") {
		t.Error("Twitter card should still render")
	}
}
