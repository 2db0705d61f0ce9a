package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"collabcore/internal/account"
	"collabcore/internal/notification"
	"collabcore/internal/reputation"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
	"collabcore/pkg/platform/sentinel"
	pstrings "collabcore/pkg/platform/strings"
)

// Reputation is the slice of the reputation service this module uses.
type Reputation interface {
	ApplyDelta(ctx context.Context, accountID id.AccountID, delta int, reasonCode string, category reputation.Category) (int, error)
}

// Directory resolves account roles for ladder validation.
type Directory interface {
	Get(ctx context.Context, accountID id.AccountID) (account.Account, error)
}

// ReviewResult reports a review outcome plus whether the account's
// verification level moved because of it.
type ReviewResult struct {
	Entry         Entry
	LevelAdvanced bool
	NewLevel      int
}

// Service runs the per-role verification ladder. The account's level is a
// monotonic counter owned by the account store; this service decides when to
// try raising it and handles the one-time ladder-complete side effect.
type Service struct {
	store     Store
	levels    AccountLevels
	directory Directory
	rep       Reputation
	notifier  notification.Sink
	logger    *slog.Logger
}

func NewService(store Store, levels AccountLevels, directory Directory, rep Reputation, notifier notification.Sink, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		levels:    levels,
		directory: directory,
		rep:       rep,
		notifier:  notifier,
		logger:    logger,
	}
}

// Submit creates or overwrites the entry for (account, type). Status always
// resets to submitted, so resubmission after a rejection is a plain retry.
func (s *Service) Submit(ctx context.Context, accountID id.AccountID, vtype string, evidence []string) (Entry, error) {
	acct, err := s.directory.Get(ctx, accountID)
	if err != nil {
		return Entry{}, err
	}
	step, ok := StepFor(acct.Role, vtype)
	if !ok {
		return Entry{}, dErrors.Newf(dErrors.CodeBadRequest, "verification type %q is not part of the %s ladder", vtype, acct.Role)
	}

	entry, err := s.store.UpsertSubmission(ctx, Entry{
		ID:          id.NewVerificationID(),
		AccountID:   accountID,
		Role:        acct.Role,
		Type:        vtype,
		Level:       step.Level,
		Evidence:    pstrings.DedupeAndTrim(evidence),
		ScoreImpact: step.ScoreImpact,
		SubmittedAt: time.Now(),
	})
	if err != nil {
		return Entry{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save submission")
	}
	return entry, nil
}

// Review records an approve/reject decision. On approval the account's level
// is raised to the entry's ordinal if that is higher than the current level;
// approvals of lower rungs never regress it. The first time the account
// covers its whole ladder a single completion notification goes out,
// deduplicated against repeat approvals by the store's one-time flag.
func (s *Service) Review(ctx context.Context, entryID id.VerificationID, decision Decision, reviewerID id.AccountID) (ReviewResult, error) {
	var status Status
	switch decision {
	case DecisionApprove:
		status = StatusApproved
	case DecisionReject:
		status = StatusRejected
	default:
		return ReviewResult{}, dErrors.Newf(dErrors.CodeBadRequest, "unknown decision %q", decision)
	}

	entry, err := s.store.ApplyReview(ctx, entryID, status, reviewerID, time.Now())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ReviewResult{}, dErrors.New(dErrors.CodeNotFound, "verification entry not found")
		}
		return ReviewResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to apply review")
	}

	result := ReviewResult{Entry: entry}
	if status != StatusApproved {
		s.notifyReviewed(ctx, entry, status)
		return result, nil
	}

	newLevel, advanced, err := s.levels.AdvanceLevel(ctx, entry.AccountID, entry.Level)
	if err != nil {
		return ReviewResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to advance verification level")
	}
	result.LevelAdvanced = advanced
	result.NewLevel = newLevel

	if entry.ScoreImpact != 0 {
		if _, err := s.rep.ApplyDelta(ctx, entry.AccountID, entry.ScoreImpact,
			reputation.ReasonVerificationApproved, reputation.CategoryVerification); err != nil {
			s.logger.ErrorContext(ctx, "failed to credit verification reputation",
				"entry_id", entryID.String(),
				"account_id", entry.AccountID.String(),
				"error", err.Error(),
			)
		}
	}

	s.notifyReviewed(ctx, entry, status)
	if newLevel >= LadderLength(entry.Role) {
		s.handleLadderComplete(ctx, entry.AccountID)
	}
	return result, nil
}

// Progress lists the account's entries alongside its ladder.
func (s *Service) Progress(ctx context.Context, accountID id.AccountID) ([]Entry, error) {
	entries, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list verification entries")
	}
	return entries, nil
}

func (s *Service) handleLadderComplete(ctx context.Context, accountID id.AccountID) {
	first, err := s.levels.MarkLadderComplete(ctx, accountID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record ladder completion",
			"account_id", accountID.String(),
			"error", err.Error(),
		)
		return
	}
	if !first {
		return
	}
	s.notify(ctx, accountID, notification.TypeVerificationComplete,
		"Verification complete", "You have completed every verification step for your role.",
		nil)
}

func (s *Service) notifyReviewed(ctx context.Context, entry Entry, status Status) {
	s.notify(ctx, entry.AccountID, notification.TypeVerificationReviewed,
		"Verification reviewed", "Your "+entry.Type+" verification was "+string(status)+".",
		map[string]string{"entry_id": entry.ID.String(), "status": string(status)})
}

func (s *Service) notify(ctx context.Context, accountID id.AccountID, ntype, title, message string, meta map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Enqueue(ctx, accountID.String(), ntype, title, message, meta); err != nil {
		s.logger.WarnContext(ctx, "notification enqueue failed",
			"account_id", accountID.String(),
			"type", ntype,
			"error", err.Error(),
		)
	}
}
