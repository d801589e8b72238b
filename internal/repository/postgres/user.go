package postgres

import (
	"context"

	"github.com/roomcraft/roomcraft/internal/domain/user"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/postgres"
	"github.com/shopspring/decimal"
)

type userRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewUserRepository creates a new instance of user repository
func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id, email, total_credits, stripe_customer_id, created_at, updated_at
		) VALUES (
			:id, :email, :total_credits, :stripe_customer_id, :created_at, :updated_at
		)`

	r.logger.Debugw("creating user",
		"user_id", u.ID,
		"email", u.Email,
	)

	_, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create user").
			WithReportableDetails(map[string]interface{}{
				"user_id": u.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT * FROM users WHERE id = :id`

	params := map[string]interface{}{
		"id": id,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query user").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("user not found").
			WithHintf("User %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	var u user.User
	if err := rows.StructScan(&u); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan user").
			Mark(ierr.ErrDatabase)
	}
	return &u, nil
}

func (r *userRepository) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*user.User, error) {
	query := `SELECT * FROM users WHERE stripe_customer_id = :stripe_customer_id`

	params := map[string]interface{}{
		"stripe_customer_id": stripeCustomerID,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query user").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("user not found").
			WithHint("No user exists for this Stripe customer").
			WithReportableDetails(map[string]interface{}{
				"stripe_customer_id": stripeCustomerID,
			}).
			Mark(ierr.ErrNotFound)
	}

	var u user.User
	if err := rows.StructScan(&u); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan user").
			Mark(ierr.ErrDatabase)
	}
	return &u, nil
}

func (r *userRepository) ListIDs(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM users ORDER BY id`

	var ids []string
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &ids, query); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list user ids").
			Mark(ierr.ErrDatabase)
	}
	return ids, nil
}

func (r *userRepository) UpdateTotalCredits(ctx context.Context, id string, totalCredits decimal.Decimal) error {
	query := `
		UPDATE users
		SET total_credits = :total_credits, updated_at = NOW()
		WHERE id = :id`

	params := map[string]interface{}{
		"id":            id,
		"total_credits": totalCredits,
	}

	r.logger.Debugw("updating user total credits",
		"user_id", id,
		"total_credits", totalCredits,
	)

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update user balance").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to get rows affected").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("user not found").
			WithHintf("User %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// IncrementTotalCredits applies the delta in a single statement so the
// floor-at-zero clamp holds under concurrent spends
func (r *userRepository) IncrementTotalCredits(ctx context.Context, id string, delta decimal.Decimal) error {
	query := `
		UPDATE users
		SET total_credits = GREATEST(total_credits + :delta, 0), updated_at = NOW()
		WHERE id = :id`

	params := map[string]interface{}{
		"id":    id,
		"delta": delta,
	}

	r.logger.Debugw("incrementing user total credits",
		"user_id", id,
		"delta", delta,
	)

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to increment user balance").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to get rows affected").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("user not found").
			WithHintf("User %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *userRepository) UpdateStripeCustomerID(ctx context.Context, id string, stripeCustomerID string) error {
	query := `
		UPDATE users
		SET stripe_customer_id = :stripe_customer_id, updated_at = NOW()
		WHERE id = :id`

	params := map[string]interface{}{
		"id":                 id,
		"stripe_customer_id": stripeCustomerID,
	}

	_, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update stripe customer id").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
