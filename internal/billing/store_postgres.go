package billing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"collabcore/internal/platform/postgres"
	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

type PostgresSubscriptionStore struct {
	db *sql.DB
}

func NewPostgresSubscriptions(db *sql.DB) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

func (s *PostgresSubscriptionStore) Upsert(ctx context.Context, sub Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions
			(account_id, plan_tier, status, external_customer_ref, external_subscription_ref,
			 current_period_start, current_period_end, cancel_at_period_end, features, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (account_id) DO UPDATE SET
			plan_tier = EXCLUDED.plan_tier,
			status = EXCLUDED.status,
			external_customer_ref = EXCLUDED.external_customer_ref,
			external_subscription_ref = EXCLUDED.external_subscription_ref,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			features = EXCLUDED.features,
			updated_at = now()
	`, uuid.UUID(sub.AccountID), sub.PlanTier, sub.Status, sub.CustomerRef, sub.SubscriptionRef,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, pq.Array(sub.Features))
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (s *PostgresSubscriptionStore) ApplyByCustomerRef(ctx context.Context, customerRef string, change SubscriptionChange) (Subscription, error) {
	// COALESCE folds the partial change into one UPDATE so concurrent events
	// for the same customer never interleave mid-record.
	row := s.db.QueryRowContext(ctx, `
		UPDATE subscriptions SET
			status = COALESCE($2::text, status),
			plan_tier = COALESCE($3::text, plan_tier),
			features = COALESCE($4::text[], features),
			cancel_at_period_end = COALESCE($5::boolean, cancel_at_period_end),
			current_period_start = COALESCE($6::timestamptz, current_period_start),
			current_period_end = COALESCE($7::timestamptz, current_period_end),
			updated_at = now()
		WHERE external_customer_ref = $1
		RETURNING account_id, plan_tier, status, external_customer_ref, external_subscription_ref,
			current_period_start, current_period_end, cancel_at_period_end, features, updated_at
	`, customerRef, nullableString((*string)(change.Status)), nullableString((*string)(change.PlanTier)),
		featuresArray(change.Features), change.CancelAtPeriodEnd, change.PeriodStart, change.PeriodEnd)
	sub, err := scanSubscription(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Subscription{}, sentinel.ErrNotFound
		}
		return Subscription{}, fmt.Errorf("apply subscription change: %w", err)
	}
	return sub, nil
}

func (s *PostgresSubscriptionStore) FindByAccount(ctx context.Context, accountID id.AccountID) (Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, plan_tier, status, external_customer_ref, external_subscription_ref,
			current_period_start, current_period_end, cancel_at_period_end, features, updated_at
		FROM subscriptions WHERE account_id = $1
	`, uuid.UUID(accountID))
	sub, err := scanSubscription(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Subscription{}, sentinel.ErrNotFound
		}
		return Subscription{}, fmt.Errorf("find subscription: %w", err)
	}
	return sub, nil
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func featuresArray(features []string) any {
	if features == nil {
		return nil
	}
	return pq.Array(features)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (Subscription, error) {
	var sub Subscription
	var acctID uuid.UUID
	if err := row.Scan(&acctID, &sub.PlanTier, &sub.Status, &sub.CustomerRef, &sub.SubscriptionRef,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd,
		pq.Array(&sub.Features), &sub.UpdatedAt); err != nil {
		return Subscription{}, err
	}
	sub.AccountID = id.AccountID(acctID)
	return sub, nil
}

type PostgresPaymentStore struct {
	db *sql.DB
}

func NewPostgresPayments(db *sql.DB) *PostgresPaymentStore {
	return &PostgresPaymentStore{db: db}
}

func (s *PostgresPaymentStore) CreateIfAbsent(ctx context.Context, p Payment) (bool, error) {
	var toAccount, linked any
	if p.ToAccount != nil {
		toAccount = uuid.UUID(*p.ToAccount)
	}
	if p.LinkedEntity != nil {
		linked = uuid.UUID(*p.LinkedEntity)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments
			(external_payment_ref, type, amount, currency, status, from_account, to_account, linked_entity, platform_fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`, p.ExternalRef, p.Type, p.Amount, p.Currency, p.Status,
		uuid.UUID(p.FromAccount), toAccount, linked, p.PlatformFee)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create payment: %w", err)
	}
	return true, nil
}

func (s *PostgresPaymentStore) AdvanceStatus(ctx context.Context, externalRef string, to PaymentStatus) (Payment, error) {
	from := AllowedFrom(to)
	froms := make([]string, len(from))
	for i, f := range from {
		froms[i] = string(f)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE payments
		SET status = $2, updated_at = now()
		WHERE external_payment_ref = $1 AND status = ANY($3)
		RETURNING external_payment_ref, type, amount, currency, status, from_account, to_account, linked_entity, platform_fee, created_at, updated_at
	`, externalRef, to, pq.Array(froms))
	p, err := scanPayment(row)
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return Payment{}, fmt.Errorf("advance payment status: %w", err)
	}
	// Zero rows: classify missing vs non-forward transition.
	if _, findErr := s.FindByRef(ctx, externalRef); findErr != nil {
		return Payment{}, findErr
	}
	return Payment{}, sentinel.ErrInvalidState
}

func (s *PostgresPaymentStore) FindByRef(ctx context.Context, externalRef string) (Payment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT external_payment_ref, type, amount, currency, status, from_account, to_account, linked_entity, platform_fee, created_at, updated_at
		FROM payments WHERE external_payment_ref = $1
	`, externalRef)
	p, err := scanPayment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Payment{}, sentinel.ErrNotFound
		}
		return Payment{}, fmt.Errorf("find payment: %w", err)
	}
	return p, nil
}

func scanPayment(row rowScanner) (Payment, error) {
	var p Payment
	var fromAccount uuid.UUID
	var toAccount, linked uuid.NullUUID
	if err := row.Scan(&p.ExternalRef, &p.Type, &p.Amount, &p.Currency, &p.Status,
		&fromAccount, &toAccount, &linked, &p.PlatformFee, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Payment{}, err
	}
	p.FromAccount = id.AccountID(fromAccount)
	if toAccount.Valid {
		v := id.AccountID(toAccount.UUID)
		p.ToAccount = &v
	}
	if linked.Valid {
		v := id.MilestoneID(linked.UUID)
		p.LinkedEntity = &v
	}
	return p, nil
}
