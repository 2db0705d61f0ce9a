package alliance

import (
	"context"
	"errors"
	"log/slog"

	"collabcore/internal/notification"
	"collabcore/internal/platform/metrics"
	"collabcore/internal/reputation"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
	"collabcore/pkg/platform/audit"
	"collabcore/pkg/platform/sentinel"
)

// AcceptReputationDelta is credited to both parties when an alliance is
// accepted, applied exactly once per alliance by the single accept winner.
const AcceptReputationDelta = 3

// Reputation is the slice of the reputation service this module uses.
type Reputation interface {
	ApplyDelta(ctx context.Context, accountID id.AccountID, delta int, reasonCode string, category reputation.Category) (int, error)
}

// Service drives the pairwise alliance state machine. Concurrency control is
// delegated entirely to the store's atomic contracts; the service's job is
// sequencing, side effects, and turning lost races into precise answers.
type Service struct {
	store    Store
	rep      Reputation
	notifier notification.Sink
	metrics  *metrics.Metrics
	auditor  *audit.Recorder
	logger   *slog.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAudit(r *audit.Recorder) Option {
	return func(s *Service) { s.auditor = r }
}

func NewService(store Store, rep Reputation, notifier notification.Sink, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{store: store, rep: rep, notifier: notifier, logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Request creates a pending alliance from requester to receiver. An existing
// rejected record for the pair is superseded: it is deleted, then the new
// pending record is inserted. If the sequence is interrupted a retry is safe
// because both steps re-check state (the delete matches only rejected rows
// and the insert re-hits the pair constraint).
func (s *Service) Request(ctx context.Context, requester, receiver id.AccountID) (Alliance, error) {
	if requester == receiver {
		return Alliance{}, dErrors.New(dErrors.CodeBadRequest, "cannot request an alliance with yourself")
	}

	pairKey := PairKey(requester, receiver)
	if err := s.store.DeleteRejectedByPair(ctx, pairKey); err != nil {
		return Alliance{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to clear superseded alliance")
	}

	a := Alliance{
		ID:          id.NewAllianceID(),
		RequesterID: requester,
		ReceiverID:  receiver,
		Status:      StatusPending,
	}
	if err := s.store.CreateIfPairFree(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Alliance{}, s.pairConflict(ctx, pairKey)
		}
		return Alliance{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create alliance")
	}

	s.notify(ctx, receiver, notification.TypeAllianceRequested,
		"New alliance request", "You have received an alliance request.",
		map[string]string{"alliance_id": a.ID.String(), "requester_id": requester.String()})
	s.record(ctx, "alliance.requested", requester, a.ID)

	return s.store.FindByID(ctx, a.ID)
}

// Accept performs the exactly-once accept transition. The conditional update
// is the race arbiter; when it matches nothing, the record is re-fetched so
// the caller learns whether it lost the race, lacked the right, or aimed at
// a record that does not exist.
func (s *Service) Accept(ctx context.Context, allianceID id.AllianceID, caller id.AccountID) (Alliance, error) {
	a, err := s.store.AcceptIfPending(ctx, allianceID, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Alliance{}, s.classifyLostTransition(ctx, allianceID, caller, "accept")
		}
		return Alliance{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to accept alliance")
	}

	// Side effects run only on the single winning accept.
	for _, accountID := range []id.AccountID{a.RequesterID, a.ReceiverID} {
		if _, err := s.rep.ApplyDelta(ctx, accountID, AcceptReputationDelta,
			reputation.ReasonAllianceAccepted, reputation.CategoryAgreement); err != nil {
			s.logger.ErrorContext(ctx, "failed to credit alliance reputation",
				"alliance_id", allianceID.String(),
				"account_id", accountID.String(),
				"error", err.Error(),
			)
		}
	}
	s.notify(ctx, a.RequesterID, notification.TypeAllianceAccepted,
		"Alliance accepted", "Your alliance request was accepted.",
		map[string]string{"alliance_id": a.ID.String()})
	s.record(ctx, "alliance.accepted", caller, a.ID)

	return a, nil
}

// Reject declines a pending alliance. Only the receiver may reject; a repeat
// reject observes the non-pending state and reports the conflict.
func (s *Service) Reject(ctx context.Context, allianceID id.AllianceID, caller id.AccountID) (Alliance, error) {
	a, err := s.store.RejectIfPending(ctx, allianceID, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Alliance{}, s.classifyLostTransition(ctx, allianceID, caller, "reject")
		}
		return Alliance{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to reject alliance")
	}
	s.record(ctx, "alliance.rejected", caller, a.ID)
	return a, nil
}

// Remove hard-deletes an accepted alliance on behalf of either member.
func (s *Service) Remove(ctx context.Context, allianceID id.AllianceID, caller id.AccountID) error {
	err := s.store.DeleteIfAcceptedMember(ctx, allianceID, caller)
	if err == nil {
		s.record(ctx, "alliance.removed", caller, allianceID)
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to remove alliance")
	}

	a, findErr := s.store.FindByID(ctx, allianceID)
	switch {
	case errors.Is(findErr, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "alliance not found")
	case findErr != nil:
		return dErrors.Wrap(findErr, dErrors.CodeUnavailable, "failed to load alliance")
	case !a.Involves(caller):
		return dErrors.New(dErrors.CodeForbidden, "only a member may remove an alliance")
	default:
		s.countConflict()
		return dErrors.Conflict("alliance is not accepted", string(a.Status))
	}
}

// ListForAccount returns all alliances the account participates in.
func (s *Service) ListForAccount(ctx context.Context, accountID id.AccountID) ([]Alliance, error) {
	out, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list alliances")
	}
	return out, nil
}

// classifyLostTransition distinguishes "lost the race" from "never had the
// right" after a conditional update matched zero rows. Both outcomes must be
// observable, distinctly, by the caller.
func (s *Service) classifyLostTransition(ctx context.Context, allianceID id.AllianceID, caller id.AccountID, verb string) error {
	a, err := s.store.FindByID(ctx, allianceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "alliance not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load alliance")
	}
	if a.ReceiverID != caller {
		return dErrors.New(dErrors.CodeForbidden, "only the receiver may "+verb+" an alliance")
	}
	s.countConflict()
	return dErrors.Conflict("alliance already "+string(a.Status), string(a.Status))
}

// pairConflict reports which live record blocked a new request.
func (s *Service) pairConflict(ctx context.Context, pairKey string) error {
	s.countConflict()
	existing, err := s.store.FindLiveByPair(ctx, pairKey)
	if err != nil {
		// The blocking record may have been removed in the meantime; report
		// the conflict without state rather than failing the classification.
		return dErrors.New(dErrors.CodeConflict, "an alliance already exists for this pair")
	}
	return dErrors.Conflict("an alliance already exists for this pair", string(existing.Status))
}

func (s *Service) countConflict() {
	if s.metrics != nil {
		s.metrics.AllianceConflicts.Inc()
	}
}

func (s *Service) record(ctx context.Context, action string, actor id.AccountID, allianceID id.AllianceID) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, audit.Event{
		Category:  audit.CategoryAlliance,
		Action:    action,
		AccountID: actor.String(),
		Subject:   allianceID.String(),
	})
}

func (s *Service) notify(ctx context.Context, accountID id.AccountID, ntype, title, message string, meta map[string]string) {
	if s.notifier == nil {
		return
	}
	// Best effort: a failed enqueue never rolls back the domain mutation.
	if err := s.notifier.Enqueue(ctx, accountID.String(), ntype, title, message, meta); err != nil {
		s.logger.WarnContext(ctx, "notification enqueue failed",
			"account_id", accountID.String(),
			"type", ntype,
			"error", err.Error(),
		)
	}
}
