package broadcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"asset-console/backend/internal/session/domain"
)

func TestHub_DeliversToMatchingUserOnly(t *testing.T) {
	hub := NewHub()
	chA, cancelA := hub.Subscribe("user-a")
	defer cancelA()
	chB, cancelB := hub.Subscribe("user-b")
	defer cancelB()

	hub.Publish(Event{UserID: "user-a", SessionToken: "s1", Reason: domain.ReasonForcedLogout})

	select {
	case e := <-chA:
		if e.SessionToken != "s1" {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber a got nothing")
	}
	select {
	case e := <-chB:
		t.Fatalf("subscriber b got %+v", e)
	default:
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("user-a")
	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Fatalf("channel still open after cancel")
	}
	// Publishing after cancel must not panic.
	hub.Publish(Event{UserID: "user-a"})
}

func TestHub_DropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("user-a")
	defer cancel()

	// More events than the buffer holds; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subBuffer*3; i++ {
			hub.Publish(Event{UserID: "user-a"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}

func TestBroadcaster_LocalWithoutRedis(t *testing.T) {
	hub := NewHub()
	b := NewBroadcaster(nil, hub)
	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	b.ForceLogout(context.Background(), "user-1", "sess-1", domain.ReasonSessionLimit)

	select {
	case e := <-ch:
		if e.UserID != "user-1" || e.Reason != domain.ReasonSessionLimit || e.At.IsZero() {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestServeSSE_RejectsAnonymous(t *testing.T) {
	hub := NewHub()
	handler := ServeSSE(hub, func(*http.Request) string { return "" })

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestServeSSE_StreamsEvent(t *testing.T) {
	hub := NewHub()
	handler := ServeSSE(hub, func(*http.Request) string { return "user-1" })

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler(rec, req)
		close(done)
	}()

	// Wait for the subscription to register, then publish and end the stream.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		n := len(hub.subs["user-1"])
		hub.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(Event{UserID: "user-1", SessionToken: "sess-1", Reason: domain.ReasonForcedLogout})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: force-logout") || !strings.Contains(body, `"sessionToken":"sess-1"`) {
		t.Fatalf("unexpected stream body %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
}
