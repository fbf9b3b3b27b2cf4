package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI executes the root command with args and returns its stdout
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeCLIFixtures creates a config backed by a SQLite cache and a page data
// file for the test topic.
func writeCLIFixtures(t *testing.T) (configPath, pagePath string) {
	t.Helper()
	dir := t.TempDir()

	configPath = filepath.Join(dir, "microdata.yaml")
	config := "base_url: https://forum.example.com\n" +
		"site_title: Example Forum\n" +
		"cache:\n" +
		"  backend: sqlite\n" +
		"  sqlite_path: " + filepath.Join(dir, "cache.db") + "\n"
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	page, err := json.Marshal(&PageData{Topic: createTestQATopic()})
	if err != nil {
		t.Fatalf("Failed to encode page data: %v", err)
	}
	pagePath = filepath.Join(dir, "page.json")
	if err := os.WriteFile(pagePath, page, 0o644); err != nil {
		t.Fatalf("Failed to write page data: %v", err)
	}
	return configPath, pagePath
}

func TestCLI_RenderStatsInvalidate(t *testing.T) {
	configPath, pagePath := writeCLIFixtures(t)

	out, err := runCLI(t, "", "render", "-c", configPath, "-i", pagePath)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	var result HeadResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("render output is not JSON: %v\n%s", err, out)
	}
	if !strings.Contains(result.Head, "application/ld+json") {
		t.Errorf("Expected JSON-LD in the head, got %q", result.Head)
	}

	out, err = runCLI(t, "", "stats", "-c", configPath)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var stats CacheStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil || stats.Topics != 1 {
		t.Errorf("Expected one cached topic, got %s (%v)", out, err)
	}

	if _, err := runCLI(t, "", "invalidate", "-c", configPath, "--event", "post_created", "--id", "42"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	out, _ = runCLI(t, "", "stats", "-c", configPath)
	if err := json.Unmarshal([]byte(out), &stats); err != nil || stats.Topics != 0 {
		t.Errorf("Expected the topic to be evicted, got %s (%v)", out, err)
	}
}

func TestCLI_RenderHeadOnlyFromStdin(t *testing.T) {
	configPath, pagePath := writeCLIFixtures(t)
	page, err := os.ReadFile(pagePath)
	if err != nil {
		t.Fatalf("Failed to read page data: %v", err)
	}

	out, err := runCLI(t, string(page), "render", "-c", configPath, "-i", "-", "--head-only", "--user-locale", "ru_RU")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.HasPrefix(out, "<meta") {
		t.Errorf("Expected a raw head fragment, got %q", out)
	}
	if !strings.Contains(out, `content="ru_RU"`) {
		t.Errorf("Expected the user locale in og:locale, got %q", out)
	}
}

func TestCLI_InvalidateRejectsUnknownEvent(t *testing.T) {
	configPath, _ := writeCLIFixtures(t)
	if _, err := runCLI(t, "", "invalidate", "-c", configPath, "--event", "tag_renamed", "--id", "1"); err == nil {
		t.Error("Expected an error for an unknown event kind")
	}
}

func TestCLI_Feed(t *testing.T) {
	configPath, pagePath := writeCLIFixtures(t)

	out, err := runCLI(t, "", "feed", "-c", configPath, "-i", pagePath)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if !strings.Contains(out, "<feed") || !strings.Contains(out, "Hello #3") {
		t.Errorf("Unexpected feed output %q", out)
	}
}

func TestDecodeEvents(t *testing.T) {
	input := `{"kind": "topic_edited", "entity_id": 42}

not json
{"kind": "user_updated", "entity_id": 7}
`
	out := make(chan DomainEvent, 4)
	count, err := decodeEvents(context.Background(), strings.NewReader(input), out)
	close(out)
	if err != nil {
		t.Fatalf("decodeEvents failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events, got %d", count)
	}

	var got []DomainEvent
	for ev := range out {
		got = append(got, ev)
	}
	expected := []DomainEvent{
		{Kind: EventTopicEdited, EntityID: 42},
		{Kind: EventUserUpdated, EntityID: 7},
	}
	if len(got) != len(expected) {
		t.Fatalf("Got %d events, want %d", len(got), len(expected))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], expected[i])
		}
	}
}

func TestDecodeEvents_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// unbuffered and never read, so the send can only give way to ctx
	count, err := decodeEvents(ctx, strings.NewReader(`{"kind": "topic_edited", "entity_id": 1}`), make(chan DomainEvent))
	if err == nil || count != 0 {
		t.Errorf("Expected cancellation, got count=%d err=%v", count, err)
	}
}
