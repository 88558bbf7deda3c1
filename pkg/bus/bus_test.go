package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPublishConsume(t *testing.T) {
	b := NewEventBus()
	ctx := context.Background()

	want := Event{
		Kind:      KindLive,
		Transport: "discord",
		ChannelID: "chan-1",
		MessageID: "100",
		Author:    Author{ID: "u1", DisplayName: "Alice"},
		Content:   "hello",
	}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, ok := b.Consume(ctx)
	if !ok {
		t.Fatal("expected an event")
	}
	if got.ChannelID != want.ChannelID || got.Content != want.Content {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := NewEventBus()
	b.Close()

	err := b.Publish(context.Background(), Event{})
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
}

func TestConsumeAfterClose(t *testing.T) {
	b := NewEventBus()
	b.Close()

	if _, ok := b.Consume(context.Background()); ok {
		t.Error("consume on a closed bus should report no event")
	}
}

func TestConsumeRespectsContext(t *testing.T) {
	b := NewEventBus()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, ok := b.Consume(ctx); ok {
		t.Error("expected no event on context timeout")
	}
	if time.Since(start) > time.Second {
		t.Error("consume did not return promptly on context cancellation")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewEventBus()
	b.Close()
	b.Close()
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindLive:     "live",
		KindReaction: "reaction",
		KindBackfill: "backfill",
		Kind(42):     "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
