// Package webhook receives provider event notifications and feeds them to the
// reconciler, normalizing each provider's wire format at the boundary.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/campaign-dispatch/internal/domain"
	"github.com/ignite/campaign-dispatch/internal/pkg/httputil"
	"github.com/ignite/campaign-dispatch/internal/pkg/logger"
	"github.com/ignite/campaign-dispatch/internal/reconcile"
)

const maxPayloadBytes = 5 * 1024 * 1024

// Reconciler is the part of the reconcile package the boundary calls,
// narrowed to an interface so tests can substitute a fake.
type Reconciler interface {
	Reconcile(ctx context.Context, evt domain.ProviderEvent) (reconcile.Outcome, error)
}

// Handler exposes the webhook HTTP surface.
type Handler struct {
	rec        Reconciler
	httpClient *http.Client
}

// NewHandler creates the webhook handler over a reconciler.
func NewHandler(rec Reconciler) *Handler {
	return &Handler{
		rec:        rec,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Routes mounts the webhook endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/webhooks/ses", h.HandleSES)
	r.Post("/webhooks/email", h.HandleGeneric)
	r.Get("/health", h.HandleHealth)
	return r
}

// snsEnvelope is the SNS wrapper SES notifications arrive in.
type snsEnvelope struct {
	Type         string `json:"Type"`
	Message      string `json:"Message"`
	SubscribeURL string `json:"SubscribeURL"`
}

// HandleSES accepts SNS-wrapped or raw SES event bodies. It always answers
// 200 for parseable payloads: SNS retries on non-2xx and a retry of an event
// we dropped on purpose buys nothing.
func (h *Handler) HandleSES(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.BadRequest(w, "failed to read body")
		return
	}

	var env snsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		httputil.BadRequest(w, "invalid JSON")
		return
	}

	switch env.Type {
	case "SubscriptionConfirmation":
		h.confirmSubscription(env.SubscribeURL)
		httputil.OK(w, map[string]string{"status": "confirmed"})
		return
	case "Notification":
		body = []byte(env.Message)
	}

	events, err := NormalizeSES(body)
	if err != nil {
		logger.Warn("unparseable ses event", "error", err)
		// 200 regardless: a retried redelivery of a malformed body stays
		// malformed.
		httputil.OK(w, map[string]string{"status": "ignored"})
		return
	}

	h.apply(r.Context(), events)
	httputil.OK(w, map[string]string{"status": "processed"})
}

// HandleGeneric accepts the provider-agnostic event shape, single event or
// array.
func (h *Handler) HandleGeneric(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.BadRequest(w, "failed to read body")
		return
	}

	var bodies [][]byte
	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err == nil {
		for _, raw := range batch {
			bodies = append(bodies, raw)
		}
	} else {
		bodies = [][]byte{body}
	}

	var events []domain.ProviderEvent
	for _, b := range bodies {
		evt, ok, err := NormalizeGeneric(b)
		if err != nil {
			httputil.BadRequest(w, "invalid event payload")
			return
		}
		if ok {
			events = append(events, evt)
		}
	}

	h.apply(r.Context(), events)
	httputil.OK(w, map[string]string{"status": "processed"})
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

func (h *Handler) apply(ctx context.Context, events []domain.ProviderEvent) {
	for _, evt := range events {
		if _, err := h.rec.Reconcile(ctx, evt); err != nil {
			// Webhook delivery is fire-and-forget; failures are logged and
			// the provider still gets its 200.
			logger.Error("event reconciliation failed", "type", string(evt.Type), "message_id", evt.MessageID, "error", err)
		}
	}
}

func (h *Handler) confirmSubscription(url string) {
	if url == "" {
		return
	}
	resp, err := h.httpClient.Get(url)
	if err != nil {
		logger.Warn("sns subscription confirmation failed", "error", err)
		return
	}
	resp.Body.Close()
	logger.Info("sns subscription confirmed")
}
