package notifications_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"casebook/internal/assets"
	"casebook/internal/notifications"
	"casebook/internal/services"
)

func TestHubPublishesChannelEventsInOrder(t *testing.T) {
	hub := notifications.NewHub(16)
	ctx := services.WithSessionID(services.WithProjectRoot(context.Background(), "/cases/one"), "sess-1")

	asset := assets.Build("id-1", assets.NewCandidate("audio/bgm/theme.mp3"), assets.Override{})
	_ = hub.AssetAdded(ctx, asset)
	_ = hub.AssetRemoved(ctx, "id-1")
	_ = hub.Error(ctx, "project root not found")

	events, next, err := hub.Fetch(context.Background(), 0, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 3 || next != 3 {
		t.Fatalf("expected 3 events and cursor 3, got %d events cursor %d", len(events), next)
	}
	wantTypes := []notifications.EventType{notifications.EventAssetAdded, notifications.EventAssetRemoved, notifications.EventError}
	for i, evt := range events {
		if evt.Type != wantTypes[i] {
			t.Fatalf("event %d: expected %s, got %s", i, wantTypes[i], evt.Type)
		}
		if evt.Sequence != uint64(i+1) {
			t.Fatalf("event %d: unexpected sequence %d", i, evt.Sequence)
		}
		if evt.ProjectRoot != "/cases/one" || evt.SessionID != "sess-1" {
			t.Fatalf("event %d: context fields missing: %+v", i, evt)
		}
	}
	if events[0].Asset == nil || events[0].Asset.Audio == nil || !events[0].Asset.Audio.Loop {
		t.Fatalf("expected bgm descriptor with loop, got %+v", events[0].Asset)
	}
	if events[1].AssetID != "id-1" {
		t.Fatalf("expected removed id id-1, got %q", events[1].AssetID)
	}
}

func TestHubAssetIsCopied(t *testing.T) {
	hub := notifications.NewHub(4)
	asset := assets.Build("id-1", assets.NewCandidate("audio/sfx/hit.wav"), assets.Override{})
	_ = hub.AssetAdded(context.Background(), asset)
	asset.Audio.Volume = 0.1

	events, _ := hub.Tail(1)
	if events[0].Asset.Audio.Volume != 1.0 {
		t.Fatalf("hub event shares memory with caller: volume %v", events[0].Asset.Audio.Volume)
	}
}

func TestHubFetchPagesAndCapacity(t *testing.T) {
	hub := notifications.NewHub(3)
	for i := 0; i < 5; i++ {
		hub.Publish(notifications.Event{Type: notifications.EventError})
	}
	if first := hub.FirstSequence(); first != 3 {
		t.Fatalf("expected oldest buffered sequence 3, got %d", first)
	}

	page, next, _ := hub.Fetch(context.Background(), 0, 2, false)
	if len(page) != 2 || page[0].Sequence != 3 || next != 4 {
		t.Fatalf("unexpected first page %+v next=%d", page, next)
	}
	page, next, _ = hub.Fetch(context.Background(), next, 2, false)
	if len(page) != 1 || page[0].Sequence != 5 || next != 5 {
		t.Fatalf("unexpected second page %+v next=%d", page, next)
	}
	page, next, _ = hub.Fetch(context.Background(), next, 2, false)
	if len(page) != 0 || next != 5 {
		t.Fatalf("expected empty page at head, got %+v next=%d", page, next)
	}
}

func TestHubFetchWaitWakesOnPublish(t *testing.T) {
	hub := notifications.NewHub(8)
	done := make(chan []notifications.Event, 1)
	go func() {
		events, _, _ := hub.Fetch(context.Background(), 0, 10, true)
		done <- events
	}()

	time.Sleep(20 * time.Millisecond)
	_ = hub.AssetRemoved(context.Background(), "gone")

	select {
	case events := <-done:
		if len(events) != 1 || events[0].AssetID != "gone" {
			t.Fatalf("unexpected events %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiting Fetch did not wake")
	}
}

func TestHubFetchWaitHonoursContext(t *testing.T) {
	hub := notifications.NewHub(8)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, _, err := hub.Fetch(ctx, 0, 10, true)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type recordingChannel struct {
	calls []string
	err   error
}

func (r *recordingChannel) AssetAdded(_ context.Context, a assets.Descriptor) error {
	r.calls = append(r.calls, "added:"+a.ID)
	return r.err
}

func (r *recordingChannel) AssetRemoved(_ context.Context, id string) error {
	r.calls = append(r.calls, "removed:"+id)
	return r.err
}

func (r *recordingChannel) Error(_ context.Context, msg string) error {
	r.calls = append(r.calls, "error:"+msg)
	return r.err
}

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	failing := &recordingChannel{err: errors.New("transport down")}
	healthy := &recordingChannel{}
	ch := notifications.Fanout(failing, nil, healthy)

	err := ch.AssetRemoved(context.Background(), "x")
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(healthy.calls) != 1 || healthy.calls[0] != "removed:x" {
		t.Fatalf("healthy channel missed delivery: %v", healthy.calls)
	}

	if single := notifications.Fanout(healthy); single != notifications.Channel(healthy) {
		t.Fatal("expected single channel to be returned unwrapped")
	}
}

func TestNopChannel(t *testing.T) {
	var ch notifications.Channel = notifications.Nop{}
	if err := ch.Error(context.Background(), "ignored"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
