package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"collabcore/internal/account"
	"collabcore/internal/milestone"
	"collabcore/internal/notification"
	"collabcore/internal/platform/metrics"
	"collabcore/internal/reputation"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
	"collabcore/pkg/platform/audit"
	"collabcore/pkg/platform/sentinel"
)

// MilestoneReputationDelta is credited to the receiving account when a
// milestone payment lands, once per payment reference.
const MilestoneReputationDelta = 5

// EventGate is the event-ledger surface the reconciler depends on.
type EventGate interface {
	Seen(ctx context.Context, externalID string) (bool, error)
	RecordIfNew(ctx context.Context, externalID, eventType string) (bool, error)
}

// Directory resolves accounts for the billable defensive check.
type Directory interface {
	Get(ctx context.Context, accountID id.AccountID) (account.Account, error)
}

// Reputation is the slice of the reputation service this module uses.
type Reputation interface {
	ApplyDelta(ctx context.Context, accountID id.AccountID, delta int, reasonCode string, category reputation.Category) (int, error)
}

// Reconciler consumes verified billing events and applies exactly one domain
// transition per event. Order of operations per event: fast-path dedup check,
// domain mutation, then the authoritative RecordIfNew. Marking the event
// processed only after the mutation means a crash mid-mutation leads to
// redelivery rather than silent loss; each mutation is idempotent against its
// own entity keys so the re-run is safe.
type Reconciler struct {
	gate       EventGate
	subs       SubscriptionStore
	payments   PaymentStore
	directory  Directory
	rep        Reputation
	milestones milestone.Store
	notifier   notification.Sink
	metrics    *metrics.Metrics
	auditor    *audit.Recorder
	logger     *slog.Logger
	tracer     trace.Tracer
}

type ReconcilerOption func(*Reconciler)

func WithMetrics(m *metrics.Metrics) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = m }
}

func WithAudit(rec *audit.Recorder) ReconcilerOption {
	return func(r *Reconciler) { r.auditor = rec }
}

func NewReconciler(
	gate EventGate,
	subs SubscriptionStore,
	payments PaymentStore,
	directory Directory,
	rep Reputation,
	milestones milestone.Store,
	notifier notification.Sink,
	logger *slog.Logger,
	opts ...ReconcilerOption,
) *Reconciler {
	r := &Reconciler{
		gate:       gate,
		subs:       subs,
		payments:   payments,
		directory:  directory,
		rep:        rep,
		milestones: milestones,
		notifier:   notifier,
		logger:     logger,
		tracer:     otel.Tracer("billing/reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process runs one event through the dedup gate and its transition. A nil
// return means the event is settled (applied, duplicate, or unrecognized)
// and the upstream should stop redelivering; an error means retry.
func (r *Reconciler) Process(ctx context.Context, ev Event) error {
	ctx, span := r.tracer.Start(ctx, "reconciler.process",
		trace.WithAttributes(attribute.String("event.type", ev.Type())))
	defer span.End()

	seen, err := r.gate.Seen(ctx, ev.ExternalID())
	if err != nil {
		return err
	}
	if seen {
		r.countOutcome(ev.Type(), "duplicate")
		if r.metrics != nil {
			r.metrics.EventsDeduplicated.Inc()
		}
		span.SetAttributes(attribute.String("event.outcome", "duplicate"))
		return nil
	}

	outcome, err := r.apply(ctx, ev)
	if err != nil {
		span.SetAttributes(attribute.String("event.outcome", "error"))
		return err
	}

	isNew, err := r.gate.RecordIfNew(ctx, ev.ExternalID(), ev.Type())
	if err != nil {
		// The mutation is in; redelivery will hit the idempotent no-op paths
		// and record the event then.
		return err
	}
	if !isNew {
		// A concurrent delivery won the ledger insert after our fast-path
		// check; the mutation paths are keyed so nothing was double-applied.
		if r.metrics != nil {
			r.metrics.EventsDeduplicated.Inc()
		}
		outcome = "duplicate"
	}

	r.countOutcome(ev.Type(), outcome)
	span.SetAttributes(attribute.String("event.outcome", outcome))
	if r.auditor != nil && outcome == "applied" {
		r.auditor.Emit(ctx, audit.Event{
			Category: audit.CategoryBilling,
			Action:   ev.Type(),
			Subject:  ev.ExternalID(),
		})
	}
	return nil
}

func (r *Reconciler) apply(ctx context.Context, ev Event) (string, error) {
	switch e := ev.(type) {
	case *CheckoutCompleted:
		return r.applyCheckout(ctx, e)
	case *SubscriptionUpdated:
		return r.applySubscriptionUpdated(ctx, e)
	case *SubscriptionDeleted:
		return r.applySubscriptionDeleted(ctx, e)
	case *InvoicePaid:
		return r.applyInvoicePaid(ctx, e)
	case *InvoicePaymentFailed:
		return r.applyInvoiceFailed(ctx, e)
	case *PaymentSucceeded:
		return r.applyPaymentSucceeded(ctx, e)
	case *PaymentFailed:
		return r.advancePayment(ctx, e.PaymentRef, PayStatusFailed, "payment_failed")
	case *ChargeRefunded:
		return r.advancePayment(ctx, e.PaymentRef, PayStatusRefunded, "charge_refunded")
	case *Unrecognized:
		// Accepted so upstream stops redelivering, but no domain mutation.
		r.logger.InfoContext(ctx, "unrecognized billing event type",
			"event_id", e.ExternalID(),
			"event_type", e.Type(),
		)
		return "unrecognized", nil
	default:
		return "", fmt.Errorf("unhandled event variant %T", ev)
	}
}

func (r *Reconciler) applyCheckout(ctx context.Context, e *CheckoutCompleted) (string, error) {
	// An empty customer_ref would create a subscription no later event can
	// address, and the unique index on the ref does not cover empty strings.
	if e.CustomerRef == "" {
		r.anomaly(ctx, "checkout_bad_ref", "event_id", e.ExternalID())
		return "anomaly", nil
	}
	accountID, err := id.ParseAccountID(e.AccountID)
	if err != nil {
		r.anomaly(ctx, "checkout_bad_account", "event_id", e.ExternalID(), "account_id", e.AccountID)
		return "anomaly", nil
	}

	acct, err := r.directory.Get(ctx, accountID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			r.anomaly(ctx, "checkout_unknown_account", "event_id", e.ExternalID(), "account_id", e.AccountID)
			return "anomaly", nil
		}
		return "", err
	}
	// A non-billable account must never receive a paid plan, whatever the
	// processor says.
	if !account.Billable(acct.Role) {
		r.logger.WarnContext(ctx, "checkout for non-billable account ignored",
			"event_id", e.ExternalID(),
			"account_id", e.AccountID,
			"role", string(acct.Role),
		)
		return "skipped", nil
	}

	tier := NormalizePlan(e.PlanTier)
	sub := Subscription{
		AccountID:       accountID,
		PlanTier:        tier,
		Status:          SubStatusActive,
		CustomerRef:     e.CustomerRef,
		SubscriptionRef: e.SubscriptionRef,
		Features:        FeaturesFor(tier),
	}
	if !e.PeriodStart.IsZero() {
		sub.CurrentPeriodStart = &e.PeriodStart
	}
	if !e.PeriodEnd.IsZero() {
		sub.CurrentPeriodEnd = &e.PeriodEnd
	}
	if err := r.subs.Upsert(ctx, sub); err != nil {
		return "", err
	}
	return "applied", nil
}

func (r *Reconciler) applySubscriptionUpdated(ctx context.Context, e *SubscriptionUpdated) (string, error) {
	if e.CustomerRef == "" {
		r.anomaly(ctx, "subscription_bad_ref", "event_id", e.ExternalID())
		return "anomaly", nil
	}
	status := SubscriptionStatus(e.Status)
	change := SubscriptionChange{
		Status:            &status,
		CancelAtPeriodEnd: &e.CancelAtPeriodEnd,
	}
	if !e.PeriodStart.IsZero() {
		change.PeriodStart = &e.PeriodStart
	}
	if !e.PeriodEnd.IsZero() {
		change.PeriodEnd = &e.PeriodEnd
	}

	sub, err := r.subs.ApplyByCustomerRef(ctx, e.CustomerRef, change)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.anomaly(ctx, "subscription_unknown_customer", "event_id", e.ExternalID(), "customer_ref", e.CustomerRef)
			return "anomaly", nil
		}
		return "", err
	}
	if status == SubStatusPastDue {
		r.notify(ctx, sub.AccountID, notification.TypePaymentIssue,
			"Payment issue", "Your subscription payment is past due.",
			map[string]string{"customer_ref": e.CustomerRef})
	}
	return "applied", nil
}

func (r *Reconciler) applySubscriptionDeleted(ctx context.Context, e *SubscriptionDeleted) (string, error) {
	if e.CustomerRef == "" {
		r.anomaly(ctx, "subscription_bad_ref", "event_id", e.ExternalID())
		return "anomaly", nil
	}
	status := SubStatusCanceled
	tier := PlanFree
	_, err := r.subs.ApplyByCustomerRef(ctx, e.CustomerRef, SubscriptionChange{
		Status:   &status,
		PlanTier: &tier,
		Features: FeaturesFor(PlanFree),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.anomaly(ctx, "subscription_unknown_customer", "event_id", e.ExternalID(), "customer_ref", e.CustomerRef)
			return "anomaly", nil
		}
		return "", err
	}
	return "applied", nil
}

func (r *Reconciler) applyInvoicePaid(ctx context.Context, e *InvoicePaid) (string, error) {
	// The first invoice of a subscription is already covered by checkout;
	// only recurring cycles refresh the period.
	if e.BillingReason != BillingReasonCycle {
		return "skipped", nil
	}
	if e.CustomerRef == "" {
		r.anomaly(ctx, "subscription_bad_ref", "event_id", e.ExternalID())
		return "anomaly", nil
	}
	status := SubStatusActive
	change := SubscriptionChange{Status: &status}
	if !e.PeriodStart.IsZero() {
		change.PeriodStart = &e.PeriodStart
	}
	if !e.PeriodEnd.IsZero() {
		change.PeriodEnd = &e.PeriodEnd
	}
	if _, err := r.subs.ApplyByCustomerRef(ctx, e.CustomerRef, change); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.anomaly(ctx, "subscription_unknown_customer", "event_id", e.ExternalID(), "customer_ref", e.CustomerRef)
			return "anomaly", nil
		}
		return "", err
	}
	return "applied", nil
}

func (r *Reconciler) applyInvoiceFailed(ctx context.Context, e *InvoicePaymentFailed) (string, error) {
	if e.CustomerRef == "" {
		r.anomaly(ctx, "subscription_bad_ref", "event_id", e.ExternalID())
		return "anomaly", nil
	}
	status := SubStatusPastDue
	sub, err := r.subs.ApplyByCustomerRef(ctx, e.CustomerRef, SubscriptionChange{Status: &status})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.anomaly(ctx, "subscription_unknown_customer", "event_id", e.ExternalID(), "customer_ref", e.CustomerRef)
			return "anomaly", nil
		}
		return "", err
	}
	r.notify(ctx, sub.AccountID, notification.TypePaymentIssue,
		"Payment failed", "Your subscription invoice payment failed.",
		map[string]string{"customer_ref": e.CustomerRef})
	return "applied", nil
}

func (r *Reconciler) applyPaymentSucceeded(ctx context.Context, e *PaymentSucceeded) (string, error) {
	if e.PaymentRef == "" {
		r.anomaly(ctx, "payment_bad_ref", "event_id", e.ExternalID())
		return "anomaly", nil
	}
	fromAccount, err := id.ParseAccountID(e.FromAccount)
	if err != nil {
		r.anomaly(ctx, "payment_bad_account", "event_id", e.ExternalID(), "from_account", e.FromAccount)
		return "anomaly", nil
	}

	p := Payment{
		ExternalRef: e.PaymentRef,
		Type:        PaymentType(e.PaymentType),
		Amount:      e.Amount,
		Currency:    e.Currency,
		Status:      PayStatusCompleted,
		FromAccount: fromAccount,
		PlatformFee: e.PlatformFee,
	}
	if e.ToAccount != "" {
		toAccount, err := id.ParseAccountID(e.ToAccount)
		if err != nil {
			r.anomaly(ctx, "payment_bad_account", "event_id", e.ExternalID(), "to_account", e.ToAccount)
			return "anomaly", nil
		}
		p.ToAccount = &toAccount
	}
	var milestoneID *id.MilestoneID
	if e.MilestoneID != "" {
		mid, err := id.ParseMilestoneID(e.MilestoneID)
		if err != nil {
			r.anomaly(ctx, "payment_bad_milestone", "event_id", e.ExternalID(), "milestone_id", e.MilestoneID)
			return "anomaly", nil
		}
		milestoneID = &mid
		p.LinkedEntity = &mid
	}

	// Defense in depth beyond the event ledger: payment confirmations are
	// especially sensitive to duplication, so the payment reference itself
	// is a second uniqueness gate.
	created, err := r.payments.CreateIfAbsent(ctx, p)
	if err != nil {
		return "", err
	}
	if !created {
		return "duplicate_payment", nil
	}
	if r.metrics != nil {
		r.metrics.PaymentsRecorded.Inc()
	}

	// Side effects run only on first recording.
	if milestoneID != nil {
		if _, err := r.milestones.AdvanceEscrow(ctx, *milestoneID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrInvalidState) {
				r.anomaly(ctx, "escrow_not_advanceable", "event_id", e.ExternalID(), "milestone_id", e.MilestoneID)
			} else {
				return "", err
			}
		}
	}
	// Only milestone payments carry a completion signal; investment and
	// subscription payments move money without moving trust.
	if milestoneID != nil && p.ToAccount != nil {
		if _, err := r.rep.ApplyDelta(ctx, *p.ToAccount, MilestoneReputationDelta,
			reputation.ReasonMilestonePaid, reputation.CategoryCompletion); err != nil {
			r.logger.ErrorContext(ctx, "failed to credit milestone reputation",
				"event_id", e.ExternalID(),
				"account_id", p.ToAccount.String(),
				"error", err.Error(),
			)
		}
	}
	if p.ToAccount != nil {
		r.notify(ctx, *p.ToAccount, notification.TypePaymentReceived,
			"Payment received", "A payment has been released to you.",
			map[string]string{"payment_ref": e.PaymentRef})
	}
	return "applied", nil
}

// advancePayment handles payment_failed and charge_refunded, both of which
// look up the record by external reference and push its status forward.
func (r *Reconciler) advancePayment(ctx context.Context, paymentRef string, to PaymentStatus, kind string) (string, error) {
	if paymentRef == "" {
		r.anomaly(ctx, kind+"_bad_ref")
		return "anomaly", nil
	}
	_, err := r.payments.AdvanceStatus(ctx, paymentRef, to)
	switch {
	case err == nil:
		return "applied", nil
	case errors.Is(err, sentinel.ErrNotFound):
		// The referenced payment may predate this reconciler; an anomaly to
		// log, not an error to retry forever.
		r.anomaly(ctx, kind+"_unmatched", "payment_ref", paymentRef)
		return "anomaly", nil
	case errors.Is(err, sentinel.ErrInvalidState):
		r.anomaly(ctx, kind+"_not_forward", "payment_ref", paymentRef)
		return "anomaly", nil
	default:
		return "", err
	}
}

func (r *Reconciler) anomaly(ctx context.Context, kind string, args ...any) {
	if r.metrics != nil {
		r.metrics.AnomaliesObserved.WithLabelValues(kind).Inc()
	}
	r.logger.WarnContext(ctx, "billing anomaly: "+kind, args...)
}

func (r *Reconciler) countOutcome(eventType, outcome string) {
	if r.metrics != nil {
		r.metrics.EventsProcessed.WithLabelValues(eventType, outcome).Inc()
	}
}

func (r *Reconciler) notify(ctx context.Context, accountID id.AccountID, ntype, title, message string, meta map[string]string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Enqueue(ctx, accountID.String(), ntype, title, message, meta); err != nil {
		r.logger.WarnContext(ctx, "notification enqueue failed",
			"account_id", accountID.String(),
			"type", ntype,
			"error", err.Error(),
		)
	}
}
