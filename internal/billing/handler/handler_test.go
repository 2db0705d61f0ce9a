package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcore/internal/billing"
	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
	"collabcore/pkg/testutil"
)

type stubProcessor struct {
	events []billing.Event
	err    error
}

func (p *stubProcessor) Process(_ context.Context, ev billing.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

type stubSubs struct {
	sub billing.Subscription
	err error
}

func (s *stubSubs) FindByAccount(context.Context, id.AccountID) (billing.Subscription, error) {
	return s.sub, s.err
}

const testSecret = "whsec_handler"

func newTestHandler(processor *stubProcessor, subs *stubSubs) (*Handler, chi.Router) {
	h := New(processor, subs, testSecret, 5*time.Minute, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.Register(r, r)
	return h, r
}

func postWebhook(t *testing.T, r chi.Router, payload, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleWebhook_SignedEventIsAccepted(t *testing.T) {
	processor := &stubProcessor{}
	_, r := newTestHandler(processor, &stubSubs{})

	payload := `{"id":"evt_1","type":"invoice.paid","data":{"customer_ref":"cus_1","billing_reason":"subscription_cycle"}}`
	rec := postWebhook(t, r, payload, billing.SignPayload([]byte(payload), testSecret, time.Now()))

	testutil.AssertStatus(t, rec, http.StatusOK)
	body := testutil.UnmarshalResponse[WebhookResponse](t, rec)
	assert.True(t, body.Received)

	require.Len(t, processor.events, 1)
	assert.Equal(t, "evt_1", processor.events[0].ExternalID())
	assert.IsType(t, &billing.InvoicePaid{}, processor.events[0])
}

func TestHandleWebhook_BadSignatureIsRejectedBeforeProcessing(t *testing.T) {
	processor := &stubProcessor{}
	_, r := newTestHandler(processor, &stubSubs{})

	payload := `{"id":"evt_1","type":"invoice.paid","data":{}}`

	t.Run("missing header", func(t *testing.T) {
		rec := postWebhook(t, r, payload, "")
		testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("wrong secret", func(t *testing.T) {
		rec := postWebhook(t, r, payload, billing.SignPayload([]byte(payload), "whsec_other", time.Now()))
		testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("stale timestamp", func(t *testing.T) {
		rec := postWebhook(t, r, payload, billing.SignPayload([]byte(payload), testSecret, time.Now().Add(-time.Hour)))
		testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("tampered payload", func(t *testing.T) {
		sig := billing.SignPayload([]byte(payload), testSecret, time.Now())
		rec := postWebhook(t, r, `{"id":"evt_2","type":"invoice.paid","data":{}}`, sig)
		testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
	})

	assert.Empty(t, processor.events, "rejected deliveries must not reach the reconciler")
}

func TestHandleWebhook_MalformedPayloadIsBadRequest(t *testing.T) {
	processor := &stubProcessor{}
	_, r := newTestHandler(processor, &stubSubs{})

	payload := `{"type":"invoice.paid","data":{}}` // no event id
	rec := postWebhook(t, r, payload, billing.SignPayload([]byte(payload), testSecret, time.Now()))

	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")
	assert.Empty(t, processor.events)
}

func TestHandleWebhook_ProcessingErrorPromptsRedelivery(t *testing.T) {
	processor := &stubProcessor{err: errors.New("store down")}
	_, r := newTestHandler(processor, &stubSubs{})

	payload := `{"id":"evt_1","type":"payment.succeeded","data":{"payment_ref":"pay_1"}}`
	rec := postWebhook(t, r, payload, billing.SignPayload([]byte(payload), testSecret, time.Now()))

	testutil.AssertStatusAndError(t, rec, http.StatusServiceUnavailable, "unavailable")
}

func TestHandleSubscription(t *testing.T) {
	accountID := id.NewAccountID()
	end := time.Now().AddDate(0, 1, 0)

	t.Run("returns caller subscription", func(t *testing.T) {
		subs := &stubSubs{sub: billing.Subscription{
			AccountID:        accountID,
			PlanTier:         billing.PlanPro,
			Status:           billing.SubStatusActive,
			Features:         billing.FeaturesFor(billing.PlanPro),
			CurrentPeriodEnd: &end,
		}}
		_, r := newTestHandler(&stubProcessor{}, subs)

		req := testutil.WithAccount(httptest.NewRequest(http.MethodGet, "/billing/subscription", nil), accountID.String(), "founder")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		testutil.AssertStatus(t, rec, http.StatusOK)
		body := testutil.UnmarshalResponse[SubscriptionResponse](t, rec)
		assert.Equal(t, "pro", body.PlanTier)
		assert.Equal(t, "active", body.Status)
		require.NotNil(t, body.CurrentPeriodEnd)
	})

	t.Run("no subscription is not_found", func(t *testing.T) {
		_, r := newTestHandler(&stubProcessor{}, &stubSubs{err: sentinel.ErrNotFound})

		req := testutil.WithAccount(httptest.NewRequest(http.MethodGet, "/billing/subscription", nil), accountID.String(), "founder")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, r := newTestHandler(&stubProcessor{}, &stubSubs{})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/subscription", nil))

		testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
	})
}
