package postgres

import (
	"context"
	"time"

	"github.com/roomcraft/roomcraft/internal/domain/checkout"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/postgres"
	"github.com/roomcraft/roomcraft/internal/types"
)

type checkoutRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewCheckoutRepository creates a new instance of checkout session repository
func NewCheckoutRepository(db *postgres.DB, logger *logger.Logger) checkout.Repository {
	return &checkoutRepository{
		db:     db,
		logger: logger,
	}
}

func (r *checkoutRepository) Create(ctx context.Context, s *checkout.Session) error {
	query := `
		INSERT INTO checkout_sessions (
			id, user_id, stripe_session_id, mode, price_id, status,
			completed_at, created_at, updated_at
		) VALUES (
			:id, :user_id, :stripe_session_id, :mode, :price_id, :status,
			:completed_at, :created_at, :updated_at
		)`

	r.logger.Debugw("creating checkout session record",
		"session_id", s.ID,
		"user_id", s.UserID,
		"mode", s.Mode,
	)

	_, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create checkout session record").
			WithReportableDetails(map[string]interface{}{
				"session_id": s.ID,
				"user_id":    s.UserID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *checkoutRepository) GetByStripeSessionID(ctx context.Context, stripeSessionID string) (*checkout.Session, error) {
	query := `SELECT * FROM checkout_sessions WHERE stripe_session_id = :stripe_session_id`

	params := map[string]interface{}{
		"stripe_session_id": stripeSessionID,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query checkout session").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("checkout session not found").
			WithHint("No checkout session exists for this Stripe session").
			WithReportableDetails(map[string]interface{}{
				"stripe_session_id": stripeSessionID,
			}).
			Mark(ierr.ErrNotFound)
	}

	var s checkout.Session
	if err := rows.StructScan(&s); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan checkout session").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *checkoutRepository) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	query := `
		UPDATE checkout_sessions
		SET status = :status, completed_at = :completed_at, updated_at = NOW()
		WHERE id = :id`

	params := map[string]interface{}{
		"id":           id,
		"status":       types.CheckoutSessionStatusCompleted,
		"completed_at": completedAt,
	}

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark checkout session completed").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to get rows affected").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("checkout session not found").
			WithHintf("Checkout session %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
