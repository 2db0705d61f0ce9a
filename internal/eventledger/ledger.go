package eventledger

import (
	"context"
	"log/slog"
	"time"

	dErrors "collabcore/pkg/domain-errors"
)

// Ledger wraps the store with logging and the retention policy. The retention
// window mirrors the upstream redelivery window; purging inside it would
// reopen the door to double-processing.
type Ledger struct {
	store     Store
	retention time.Duration
	logger    *slog.Logger
}

func New(store Store, retention time.Duration, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, retention: retention, logger: logger}
}

func (l *Ledger) RecordIfNew(ctx context.Context, externalID, eventType string) (bool, error) {
	isNew, err := l.store.RecordIfNew(ctx, externalID, eventType)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "event ledger write failed")
	}
	return isNew, nil
}

func (l *Ledger) Seen(ctx context.Context, externalID string) (bool, error) {
	seen, err := l.store.Seen(ctx, externalID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "event ledger read failed")
	}
	return seen, nil
}

// PurgeExpired removes records older than the retention window.
func (l *Ledger) PurgeExpired(ctx context.Context) error {
	cutoff := time.Now().Add(-l.retention)
	purged, err := l.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "event ledger purge failed")
	}
	if purged > 0 {
		l.logger.InfoContext(ctx, "purged event ledger records",
			"purged", purged,
			"cutoff", cutoff,
		)
	}
	return nil
}
