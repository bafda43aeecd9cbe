package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"casebook/internal/assets"
	"casebook/internal/config"
	"casebook/internal/logging"
	"casebook/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		captured = append(captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), captured...)
	}
}

func TestNewNtfyReturnsNilWithoutTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	if n := notifications.NewNtfy(&cfg, logging.NewNop()); n != nil {
		t.Fatal("expected nil ntfy channel without topic")
	}
}

func TestNtfyFormatsAndOrdersPayloads(t *testing.T) {
	server, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL + "/casebook"
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.AssetEvents = true

	n := notifications.NewNtfy(&cfg, logging.NewNop())
	ctx := context.Background()
	asset := assets.Build("id-1", assets.NewCandidate("img/backgrounds/forest.png"), assets.Override{})
	_ = n.AssetAdded(ctx, asset)
	_ = n.AssetRemoved(ctx, "id-1")
	_ = n.Error(ctx, "watch backend failed")
	n.Close()

	got := captured()
	if len(got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(got))
	}
	want := []capturedRequest{
		{title: "Casebook - Asset Added", tags: "casebook,asset,added", body: "Added background: forest (img/backgrounds/forest.png)"},
		{title: "Casebook - Asset Removed", tags: "casebook,asset,removed", body: "Removed asset id-1"},
		{title: "Casebook - Error", tags: "casebook,error,alert", priority: "high", body: "Error: watch backend failed"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("request %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestNtfySuppressesAssetEventsByDefault(t *testing.T) {
	server, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.AssetEvents = false

	n := notifications.NewNtfy(&cfg, logging.NewNop())
	_ = n.AssetRemoved(context.Background(), "id-1")
	_ = n.Error(context.Background(), "boom")
	n.Close()

	got := captured()
	if len(got) != 1 || got[0].title != "Casebook - Error" {
		t.Fatalf("expected only the error push, got %+v", got)
	}
}

func TestNtfyTestNotificationIsSynchronous(t *testing.T) {
	server, captured := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	n := notifications.NewNtfy(&cfg, logging.NewNop())
	defer n.Close()
	if err := n.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	got := captured()
	if len(got) != 1 || got[0].priority != "low" {
		t.Fatalf("unexpected test push %+v", got)
	}
}

func TestNtfyReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	n := notifications.NewNtfy(&cfg, logging.NewNop())
	defer n.Close()
	if err := n.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403")
	}
}
