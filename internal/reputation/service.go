package reputation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"collabcore/internal/platform/metrics"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
	"collabcore/pkg/platform/sentinel"
)

// Service owns the trust-reputation ledger: an immutable delta log plus a
// clamped aggregate maintained incrementally. The log is the audit and
// recovery path, not the hot-path source of truth.
type Service struct {
	entries EntryStore
	scores  AccountScores
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(entries EntryStore, scores AccountScores, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{entries: entries, scores: scores, logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ApplyDelta appends an immutable entry and then folds the delta into the
// account aggregate. The increment clamps on write, so any interleaving of
// concurrent deltas converges to clamp(sum(deltas)). Entry append and
// aggregate update are two operations: if the process dies between them the
// aggregate drifts low, and Recompute repairs it from the log.
func (s *Service) ApplyDelta(ctx context.Context, accountID id.AccountID, delta int, reasonCode string, category Category) (int, error) {
	if delta == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "delta must be non-zero")
	}
	entry := Entry{
		ID:         id.NewEntryID(),
		AccountID:  accountID,
		ScoreDelta: delta,
		ReasonCode: reasonCode,
		Category:   category,
		CreatedAt:  time.Now(),
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to append reputation entry")
	}

	aggregate, err := s.scores.IncrementScoreClamped(ctx, accountID, delta)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update aggregate score")
	}

	if s.metrics != nil {
		s.metrics.ReputationDeltas.Inc()
	}
	s.logger.InfoContext(ctx, "reputation delta applied",
		"account_id", accountID.String(),
		"delta", delta,
		"reason", reasonCode,
		"aggregate", aggregate,
	)
	return aggregate, nil
}

// History returns the full entry log for an account, oldest first.
func (s *Service) History(ctx context.Context, accountID id.AccountID) ([]Entry, error) {
	entries, err := s.entries.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list reputation entries")
	}
	return entries, nil
}

// Recompute derives the aggregate from the full entry log and overwrites the
// running value. It is the repair path for suspected drift and always wins
// over the incremental aggregate when invoked.
//
// Formula: starting from a base of 40, add weighted capped contributions —
// completions (5 each, cap 30), signed agreements (3 each, cap 15),
// successful applications (2 each, cap 10), approved verifications (their
// recorded delta, cap 15) — then subtract 10 per dispute (cap 40). The
// result clamps to [0,100].
func (s *Service) Recompute(ctx context.Context, accountID id.AccountID) (int, error) {
	entries, err := s.entries.ListByAccount(ctx, accountID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list reputation entries")
	}

	var completions, agreements, applications, verificationPoints, disputes int
	for _, entry := range entries {
		switch entry.Category {
		case CategoryCompletion:
			completions++
		case CategoryAgreement:
			agreements++
		case CategoryApplication:
			applications++
		case CategoryVerification:
			verificationPoints += entry.ScoreDelta
		case CategoryDispute:
			disputes++
		}
	}

	score := 40
	score += capAt(completions*5, 30)
	score += capAt(agreements*3, 15)
	score += capAt(applications*2, 10)
	score += capAt(verificationPoints, 15)
	score -= capAt(disputes*10, 40)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	if err := s.scores.SetScore(ctx, accountID, score); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to write recomputed score")
	}
	s.logger.InfoContext(ctx, "reputation recomputed",
		"account_id", accountID.String(),
		"score", score,
		"entries", len(entries),
	)
	return score, nil
}

func capAt(value, limit int) int {
	if value > limit {
		return limit
	}
	if value < 0 {
		return 0
	}
	return value
}
