package postgres

import (
	"context"

	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/postgres"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

type ledgerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewLedgerRepository creates a new instance of ledger repository
func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return &ledgerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ledgerRepository) Create(ctx context.Context, t *ledger.Transaction) error {
	query := `
		INSERT INTO credit_transactions (
			id, user_id, type, amount, source_id, description, created_at, updated_at
		) VALUES (
			:id, :user_id, :type, :amount, :source_id, :description, :created_at, :updated_at
		)`

	r.logger.Debugw("appending ledger transaction",
		"transaction_id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount", t.Amount,
	)

	_, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to append ledger transaction").
			WithReportableDetails(map[string]interface{}{
				"transaction_id": t.ID,
				"user_id":        t.UserID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *ledgerRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*ledger.Transaction, error) {
	query := `
		SELECT * FROM credit_transactions
		WHERE user_id = :user_id
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset`

	params := map[string]interface{}{
		"user_id": userID,
		"limit":   limit,
		"offset":  offset,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query ledger transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var txns []*ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		if err := rows.StructScan(&t); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan ledger transaction").
				Mark(ierr.ErrDatabase)
		}
		txns = append(txns, &t)
	}

	if err = rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Error iterating ledger rows").
			Mark(ierr.ErrDatabase)
	}
	return txns, nil
}

func (r *ledgerRepository) ExistsBySourceAndType(ctx context.Context, sourceID string, txType types.TransactionType) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM credit_transactions
			WHERE source_id = :source_id AND type = :type
		) AS found`

	params := map[string]interface{}{
		"source_id": sourceID,
		"type":      txType,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check ledger transaction existence").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var found bool
	if rows.Next() {
		if err := rows.Scan(&found); err != nil {
			return false, ierr.WithError(err).
				WithHint("Failed to scan existence check").
				Mark(ierr.ErrDatabase)
		}
	}
	return found, nil
}

func (r *ledgerRepository) SumByUserID(ctx context.Context, userID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) AS total
		FROM credit_transactions
		WHERE user_id = :user_id AND type <> :excluded_type`

	params := map[string]interface{}{
		"user_id":       userID,
		"excluded_type": types.TransactionTypeBalanceReconciled,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to sum ledger transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var total decimal.Decimal
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return decimal.Zero, ierr.WithError(err).
				WithHint("Failed to scan ledger sum").
				Mark(ierr.ErrDatabase)
		}
	}
	return total, nil
}
