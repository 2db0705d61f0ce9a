package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"collabcore/internal/billing"
	"collabcore/internal/platform/middleware"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
	"collabcore/pkg/platform/httputil"
	"collabcore/pkg/platform/sentinel"
)

// SignatureHeader carries the processor's timestamped HMAC signature.
const SignatureHeader = "Billing-Signature"

// maxWebhookBytes bounds webhook payloads before verification.
const maxWebhookBytes = 256 << 10

// Processor consumes one parsed billing event.
type Processor interface {
	Process(ctx context.Context, ev billing.Event) error
}

// SubscriptionReader serves the authenticated subscription lookup.
type SubscriptionReader interface {
	FindByAccount(ctx context.Context, accountID id.AccountID) (billing.Subscription, error)
}

// Handler terminates billing webhooks and exposes the caller's subscription.
type Handler struct {
	processor Processor
	subs      SubscriptionReader
	secret    string
	tolerance time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func New(processor Processor, subs SubscriptionReader, secret string, tolerance time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		processor: processor,
		subs:      subs,
		secret:    secret,
		tolerance: tolerance,
		logger:    logger,
		now:       time.Now,
	}
}

// Register mounts the webhook on pub and the subscription lookup on auth.
// The webhook cannot sit behind bearer auth; the signature is its gate.
func (h *Handler) Register(pub, auth chi.Router) {
	pub.Post("/billing/webhook", h.HandleWebhook)
	auth.Get("/billing/subscription", h.HandleSubscription)
}

// HandleWebhook handles POST /billing/webhook. A 2xx tells the processor to
// stop redelivering, so duplicates and unrecognized types are 200s; only
// verification failures, malformed payloads, and transient errors are not.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read request body"))
		return
	}

	if err := billing.VerifySignature(payload, r.Header.Get(SignatureHeader), h.secret, h.tolerance, h.now()); err != nil {
		h.logger.WarnContext(ctx, "webhook signature rejected",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature"))
		return
	}

	ev, err := billing.ParseEvent(payload)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook payload rejected",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed event payload"))
		return
	}

	if err := h.processor.Process(ctx, ev); err != nil {
		h.logger.ErrorContext(ctx, "webhook processing failed",
			"request_id", requestID,
			"event_id", ev.ExternalID(),
			"event_type", ev.Type(),
			"error", err,
		)
		// Non-2xx prompts the processor to redeliver; the event ledger makes
		// the retry safe.
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "event processing failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, WebhookResponse{Received: true})
}

// HandleSubscription handles GET /billing/subscription for the caller.
func (h *Handler) HandleSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := id.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	sub, err := h.subs.FindByAccount(ctx, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no subscription for account"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "subscription lookup failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSubscription(sub))
}
