package postgres

import (
	"context"
	"time"

	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/postgres"
	"github.com/roomcraft/roomcraft/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewSubscriptionRepository creates a new instance of subscription repository
func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *subscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, stripe_subscription_id, price_id, status,
			monthly_credits, credits_used_current_period, credits_remaining_current_period,
			billing_cycle_start, billing_cycle_end, next_reset_date, is_trial,
			created_at, updated_at
		) VALUES (
			:id, :user_id, :stripe_subscription_id, :price_id, :status,
			:monthly_credits, :credits_used_current_period, :credits_remaining_current_period,
			:billing_cycle_start, :billing_cycle_end, :next_reset_date, :is_trial,
			:created_at, :updated_at
		)`

	r.logger.Debugw("creating subscription",
		"subscription_id", s.ID,
		"user_id", s.UserID,
		"status", s.Status,
		"is_trial", s.IsTrial,
	)

	_, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": s.ID,
				"user_id":         s.UserID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE id = :id`

	params := map[string]interface{}{
		"id": id,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query subscription").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	var s subscription.Subscription
	if err := rows.StructScan(&s); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan subscription").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *subscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*subscription.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE stripe_subscription_id = :stripe_subscription_id`

	params := map[string]interface{}{
		"stripe_subscription_id": stripeSubscriptionID,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query subscription").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("subscription not found").
			WithHint("No subscription exists for this Stripe subscription").
			WithReportableDetails(map[string]interface{}{
				"stripe_subscription_id": stripeSubscriptionID,
			}).
			Mark(ierr.ErrNotFound)
	}

	var s subscription.Subscription
	if err := rows.StructScan(&s); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan subscription").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *subscriptionRepository) GetActiveByUserID(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE user_id = :user_id
		AND status IN (:active, :trialing)
		ORDER BY created_at DESC`

	params := map[string]interface{}{
		"user_id":  userID,
		"active":   types.SubscriptionStatusActive,
		"trialing": types.SubscriptionStatusTrialing,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query active subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		var s subscription.Subscription
		if err := rows.StructScan(&s); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan subscription").
				Mark(ierr.ErrDatabase)
		}
		subs = append(subs, &s)
	}

	if err = rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Error iterating subscription rows").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) ListDueForReset(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE status = :status
		AND next_reset_date <= :now
		ORDER BY next_reset_date ASC`

	params := map[string]interface{}{
		"status": types.SubscriptionStatusActive,
		"now":    now,
	}

	r.logger.Debugw("listing subscriptions due for reset", "now", now)
	return r.queryList(ctx, query, params)
}

func (r *subscriptionRepository) ListDueTrials(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE status = :status
		AND is_trial = TRUE
		AND billing_cycle_end <= :now
		ORDER BY billing_cycle_end ASC`

	params := map[string]interface{}{
		"status": types.SubscriptionStatusTrialing,
		"now":    now,
	}

	r.logger.Debugw("listing due trials", "now", now)
	return r.queryList(ctx, query, params)
}

func (r *subscriptionRepository) queryList(ctx context.Context, query string, params map[string]interface{}) ([]*subscription.Subscription, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		var s subscription.Subscription
		if err := rows.StructScan(&s); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan subscription").
				Mark(ierr.ErrDatabase)
		}
		subs = append(subs, &s)
	}

	if err = rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Error iterating subscription rows").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	query := `
		UPDATE subscriptions
		SET
			status = :status,
			monthly_credits = :monthly_credits,
			credits_used_current_period = :credits_used_current_period,
			credits_remaining_current_period = :credits_remaining_current_period,
			billing_cycle_start = :billing_cycle_start,
			billing_cycle_end = :billing_cycle_end,
			next_reset_date = :next_reset_date,
			updated_at = NOW()
		WHERE id = :id`

	r.logger.Debugw("updating subscription",
		"subscription_id", s.ID,
		"status", s.Status,
	)

	result, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to get rows affected").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription %s was not found", s.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
