package main

import (
	"context"
	"fmt"
	"log/slog"
)

// EventKind names a domain event that affects cached metadata
type EventKind string

const (
	EventTopicCreated    EventKind = "topic_created"
	EventTopicEdited     EventKind = "topic_edited"
	EventPostCreated     EventKind = "post_created"
	EventPostEdited      EventKind = "post_edited"
	EventCategoryUpdated EventKind = "category_updated"
	EventUserUpdated     EventKind = "user_updated"
)

// DomainEvent is a content change notification. For post events EntityID is
// the id of the topic the post belongs to.
type DomainEvent struct {
	Kind     EventKind `json:"kind"`
	EntityID int64     `json:"entity_id"`
}

// eventVariant maps an event onto the cached variant it invalidates
func eventVariant(kind EventKind) (Variant, error) {
	switch kind {
	case EventTopicCreated, EventTopicEdited, EventPostCreated, EventPostEdited:
		return VariantTopic, nil
	case EventCategoryUpdated:
		return VariantCategory, nil
	case EventUserUpdated:
		return VariantUser, nil
	default:
		return VariantDefault, fmt.Errorf("unknown event kind %q", kind)
	}
}

// HandleEvent evicts cached renders of the entity the event refers to.
// Failures are logged rather than returned; a missed eviction only delays
// freshness until the fingerprint or TTL moves on.
func (g *Generator) HandleEvent(ctx context.Context, ev DomainEvent) {
	variant, err := eventVariant(ev.Kind)
	if err != nil {
		slog.Warn("Ignoring domain event", "error", err, "entity_id", ev.EntityID)
		return
	}

	if err := g.invalidate(ctx, entityPrefix(variant, ev.EntityID)); err != nil {
		slog.Warn("Failed to invalidate metadata cache", "error", err, "event", ev.Kind, "entity_id", ev.EntityID)
		return
	}
	slog.Debug("Invalidated metadata cache", "event", ev.Kind, "variant", variant, "entity_id", ev.EntityID)
}

// ConsumeEvents handles events until the channel closes or ctx is cancelled
func (g *Generator) ConsumeEvents(ctx context.Context, events <-chan DomainEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			g.HandleEvent(ctx, ev)
		}
	}
}
