package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ignite/campaign-dispatch/internal/domain"
	"github.com/ignite/campaign-dispatch/internal/reconcile"
)

type fakeReconciler struct {
	mu     sync.Mutex
	events []domain.ProviderEvent
	err    error
}

func (f *fakeReconciler) Reconcile(_ context.Context, evt domain.ProviderEvent) (reconcile.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	if f.err != nil {
		return "", f.err
	}
	return reconcile.OutcomeApplied, nil
}

func (f *fakeReconciler) seen() []domain.ProviderEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ProviderEvent(nil), f.events...)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleSESRawEvent(t *testing.T) {
	rec := &fakeReconciler{}
	h := NewHandler(rec)

	body := `{"eventType": "Open", "mail": {"messageId": "m-1", "tags": {"campaign_id": ["cmp-1"]}}}`
	w := postJSON(t, h.Routes(), "/webhooks/ses", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	events := rec.seen()
	if len(events) != 1 || events[0].MessageID != "m-1" {
		t.Fatalf("reconciled events: %+v", events)
	}
}

func TestHandleSESSNSNotification(t *testing.T) {
	rec := &fakeReconciler{}
	h := NewHandler(rec)

	inner, _ := json.Marshal(map[string]any{
		"eventType": "Delivery",
		"mail":      map[string]any{"messageId": "m-2"},
		"delivery":  map[string]any{"recipients": []string{"a@example.com"}},
	})
	envelope, _ := json.Marshal(map[string]string{
		"Type":    "Notification",
		"Message": string(inner),
	})

	w := postJSON(t, h.Routes(), "/webhooks/ses", string(envelope))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	events := rec.seen()
	if len(events) != 1 || events[0].Type != domain.EventDelivery || events[0].Email != "a@example.com" {
		t.Fatalf("reconciled events: %+v", events)
	}
}

func TestHandleSESSubscriptionConfirmation(t *testing.T) {
	confirmed := make(chan struct{}, 1)
	sns := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		confirmed <- struct{}{}
	}))
	defer sns.Close()

	rec := &fakeReconciler{}
	h := NewHandler(rec)

	envelope, _ := json.Marshal(map[string]string{
		"Type":         "SubscriptionConfirmation",
		"SubscribeURL": sns.URL + "/confirm",
	})
	w := postJSON(t, h.Routes(), "/webhooks/ses", string(envelope))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	select {
	case <-confirmed:
	default:
		t.Fatal("SubscribeURL was not fetched")
	}
	if len(rec.seen()) != 0 {
		t.Error("confirmation must not reach the reconciler")
	}
}

func TestHandleSESInvalidJSON(t *testing.T) {
	h := NewHandler(&fakeReconciler{})
	w := postJSON(t, h.Routes(), "/webhooks/ses", `{broken`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleSESReconcilerErrorStill200(t *testing.T) {
	rec := &fakeReconciler{err: context.DeadlineExceeded}
	h := NewHandler(rec)

	body := `{"eventType": "Open", "mail": {"messageId": "m-1"}}`
	w := postJSON(t, h.Routes(), "/webhooks/ses", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even on reconcile failure", w.Code)
	}
}

func TestHandleGenericSingle(t *testing.T) {
	rec := &fakeReconciler{}
	h := NewHandler(rec)

	w := postJSON(t, h.Routes(), "/webhooks/email", `{"type": "bounced", "message_id": "m-9", "email": "a@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	events := rec.seen()
	if len(events) != 1 || events[0].Type != domain.EventBounce {
		t.Fatalf("reconciled events: %+v", events)
	}
}

func TestHandleGenericBatch(t *testing.T) {
	rec := &fakeReconciler{}
	h := NewHandler(rec)

	body := `[
		{"type": "open", "message_id": "m-1"},
		{"type": "unsubscribe", "message_id": "m-2"},
		{"type": "click", "message_id": "m-3", "url": "https://x.test"}
	]`
	w := postJSON(t, h.Routes(), "/webhooks/email", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	events := rec.seen()
	// The unknown type in the middle is skipped, not fatal.
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].MessageID != "m-1" || events[1].MessageID != "m-3" {
		t.Errorf("events out of order: %+v", events)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(&fakeReconciler{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
