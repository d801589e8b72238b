package postgres

import (
	"context"
	"time"

	"github.com/roomcraft/roomcraft/internal/domain/creditpack"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/postgres"
	"github.com/shopspring/decimal"
)

type creditPackRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewCreditPackRepository creates a new instance of credit pack repository
func NewCreditPackRepository(db *postgres.DB, logger *logger.Logger) creditpack.Repository {
	return &creditPackRepository{
		db:     db,
		logger: logger,
	}
}

func (r *creditPackRepository) Create(ctx context.Context, p *creditpack.CreditPack) error {
	query := `
		INSERT INTO credit_packs (
			id, user_id, stripe_payment_intent_id, credits_purchased,
			credits_remaining, expires_at, expired_at, is_active,
			created_at, updated_at
		) VALUES (
			:id, :user_id, :stripe_payment_intent_id, :credits_purchased,
			:credits_remaining, :expires_at, :expired_at, :is_active,
			:created_at, :updated_at
		)`

	r.logger.Debugw("creating credit pack",
		"pack_id", p.ID,
		"user_id", p.UserID,
		"credits", p.CreditsPurchased,
	)

	_, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create credit pack").
			WithReportableDetails(map[string]interface{}{
				"pack_id": p.ID,
				"user_id": p.UserID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *creditPackRepository) GetByID(ctx context.Context, id string) (*creditpack.CreditPack, error) {
	query := `SELECT * FROM credit_packs WHERE id = :id`

	params := map[string]interface{}{
		"id": id,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query credit pack").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("credit pack not found").
			WithHintf("Credit pack %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	var p creditpack.CreditPack
	if err := rows.StructScan(&p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan credit pack").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *creditPackRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*creditpack.CreditPack, error) {
	query := `SELECT * FROM credit_packs WHERE stripe_payment_intent_id = :stripe_payment_intent_id`

	params := map[string]interface{}{
		"stripe_payment_intent_id": paymentIntentID,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query credit pack").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("credit pack not found").
			WithHint("No credit pack exists for this payment intent").
			WithReportableDetails(map[string]interface{}{
				"stripe_payment_intent_id": paymentIntentID,
			}).
			Mark(ierr.ErrNotFound)
	}

	var p creditpack.CreditPack
	if err := rows.StructScan(&p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan credit pack").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *creditPackRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*creditpack.CreditPack, error) {
	query := `
		SELECT * FROM credit_packs
		WHERE user_id = :user_id
		AND is_active = TRUE
		ORDER BY created_at ASC`

	params := map[string]interface{}{
		"user_id": userID,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query active credit packs").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var packs []*creditpack.CreditPack
	for rows.Next() {
		var p creditpack.CreditPack
		if err := rows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan credit pack").
				Mark(ierr.ErrDatabase)
		}
		packs = append(packs, &p)
	}

	if err = rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Error iterating credit pack rows").
			Mark(ierr.ErrDatabase)
	}
	return packs, nil
}

func (r *creditPackRepository) ListExpired(ctx context.Context, now time.Time) ([]*creditpack.CreditPack, error) {
	query := `
		SELECT * FROM credit_packs
		WHERE is_active = TRUE
		AND expires_at IS NOT NULL
		AND expires_at <= :now
		ORDER BY expires_at ASC`

	params := map[string]interface{}{
		"now": now,
	}

	r.logger.Debugw("listing expired credit packs", "now", now)

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query expired credit packs").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var packs []*creditpack.CreditPack
	for rows.Next() {
		var p creditpack.CreditPack
		if err := rows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan credit pack").
				Mark(ierr.ErrDatabase)
		}
		packs = append(packs, &p)
	}

	if err = rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Error iterating credit pack rows").
			Mark(ierr.ErrDatabase)
	}
	return packs, nil
}

func (r *creditPackRepository) UpdateCreditsRemaining(ctx context.Context, id string, remaining decimal.Decimal) error {
	query := `
		UPDATE credit_packs
		SET credits_remaining = :credits_remaining, updated_at = NOW()
		WHERE id = :id`

	params := map[string]interface{}{
		"id":                id,
		"credits_remaining": remaining,
	}

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update credit pack").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to get rows affected").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("credit pack not found").
			WithHintf("Credit pack %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *creditPackRepository) MarkExpired(ctx context.Context, id string, expiredAt time.Time) error {
	query := `
		UPDATE credit_packs
		SET is_active = FALSE, expired_at = :expired_at, updated_at = NOW()
		WHERE id = :id AND is_active = TRUE`

	params := map[string]interface{}{
		"id":         id,
		"expired_at": expiredAt,
	}

	r.logger.Debugw("marking credit pack expired",
		"pack_id", id,
		"expired_at", expiredAt,
	)

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark credit pack expired").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to get rows affected").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("credit pack not found or already expired").
			WithHintf("Credit pack %s was not found or already expired", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
