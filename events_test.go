package main

import (
	"context"
	"testing"
	"time"
)

func TestEventVariant(t *testing.T) {
	testCases := []struct {
		kind     EventKind
		expected Variant
		wantErr  bool
	}{
		{EventTopicCreated, VariantTopic, false},
		{EventTopicEdited, VariantTopic, false},
		{EventPostCreated, VariantTopic, false},
		{EventPostEdited, VariantTopic, false},
		{EventCategoryUpdated, VariantCategory, false},
		{EventUserUpdated, VariantUser, false},
		{"tag_renamed", VariantDefault, true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			got, err := eventVariant(tc.kind)
			if (err != nil) != tc.wantErr {
				t.Fatalf("eventVariant(%q) error = %v, wantErr %v", tc.kind, err, tc.wantErr)
			}
			if got != tc.expected {
				t.Errorf("eventVariant(%q) = %v, want %v", tc.kind, got, tc.expected)
			}
		})
	}
}

// seedTopicRenders caches two fingerprints of topic 42 and one of topic 420
func seedTopicRenders(t *testing.T, gen *Generator) {
	t.Helper()
	ctx := context.Background()
	lang := languageOptionsFor("en-US")

	topic := createTestQATopic()
	gen.Generate(ctx, &PageData{Topic: topic}, lang)
	topic.UpdatedAt = topic.UpdatedAt.Add(time.Hour)
	gen.Generate(ctx, &PageData{Topic: topic}, lang)

	other := createTestQATopic()
	other.ID = 420
	gen.Generate(ctx, &PageData{Topic: other}, lang)

	if stats, _ := gen.Stats(ctx); stats.Topics != 3 {
		t.Fatalf("Expected 3 cached topic renders, got %+v", stats)
	}
}

func TestHandleEvent_PostEditEvictsTopic(t *testing.T) {
	gen := setupTestGenerator(t, testConfig())
	seedTopicRenders(t, gen)
	ctx := context.Background()

	gen.HandleEvent(ctx, DomainEvent{Kind: EventPostEdited, EntityID: 42})

	if stats, _ := gen.Stats(ctx); stats.Topics != 1 {
		t.Errorf("Every fingerprint of topic 42 should be evicted, got %+v", stats)
	}
}

func TestHandleEvent_UnknownKindIsIgnored(t *testing.T) {
	gen := setupTestGenerator(t, testConfig())
	seedTopicRenders(t, gen)
	ctx := context.Background()

	gen.HandleEvent(ctx, DomainEvent{Kind: "tag_renamed", EntityID: 42})

	if stats, _ := gen.Stats(ctx); stats.Topics != 3 {
		t.Errorf("Unknown events must not evict anything, got %+v", stats)
	}
}

func TestConsumeEvents(t *testing.T) {
	gen := setupTestGenerator(t, testConfig())
	seedTopicRenders(t, gen)
	ctx := context.Background()

	events := make(chan DomainEvent, 2)
	events <- DomainEvent{Kind: EventTopicEdited, EntityID: 42}
	events <- DomainEvent{Kind: EventTopicCreated, EntityID: 420}
	close(events)

	done := make(chan struct{})
	go func() {
		gen.ConsumeEvents(ctx, events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ConsumeEvents did not return after the channel closed")
	}

	if stats, _ := gen.Stats(ctx); stats.Topics != 0 {
		t.Errorf("Expected all topic renders evicted, got %+v", stats)
	}
}

func TestConsumeEvents_StopsOnCancel(t *testing.T) {
	gen := setupTestGenerator(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		gen.ConsumeEvents(ctx, make(chan DomainEvent))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ConsumeEvents did not stop on cancellation")
	}
}
