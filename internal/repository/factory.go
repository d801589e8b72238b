package repository

import (
	"github.com/roomcraft/roomcraft/internal/domain/checkout"
	"github.com/roomcraft/roomcraft/internal/domain/creditpack"
	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	"github.com/roomcraft/roomcraft/internal/domain/user"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/postgres"
	postgresRepo "github.com/roomcraft/roomcraft/internal/repository/postgres"
)

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return postgresRepo.NewUserRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewCreditPackRepository(db *postgres.DB, logger *logger.Logger) creditpack.Repository {
	return postgresRepo.NewCreditPackRepository(db, logger)
}

func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return postgresRepo.NewLedgerRepository(db, logger)
}

func NewCheckoutRepository(db *postgres.DB, logger *logger.Logger) checkout.Repository {
	return postgresRepo.NewCheckoutRepository(db, logger)
}
