package service

import (
	"github.com/roomcraft/roomcraft/internal/cache"
	"github.com/roomcraft/roomcraft/internal/config"
	"github.com/roomcraft/roomcraft/internal/domain/checkout"
	"github.com/roomcraft/roomcraft/internal/domain/creditpack"
	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	"github.com/roomcraft/roomcraft/internal/domain/user"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/postgres"
)

// ServiceParams holds common dependencies for services. Repositories and
// clients are constructed once at process start and injected; services
// never reach for ambient globals.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	// Repositories
	UserRepo       user.Repository
	SubRepo        subscription.Repository
	CreditPackRepo creditpack.Repository
	LedgerRepo     ledger.Repository
	CheckoutRepo   checkout.Repository
}

// NewServiceParams creates a new ServiceParams with all dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db *postgres.DB,
	cache cache.Cache,
	userRepo user.Repository,
	subRepo subscription.Repository,
	creditPackRepo creditpack.Repository,
	ledgerRepo ledger.Repository,
	checkoutRepo checkout.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:         logger,
		Config:         config,
		DB:             db,
		Cache:          cache,
		UserRepo:       userRepo,
		SubRepo:        subRepo,
		CreditPackRepo: creditPackRepo,
		LedgerRepo:     ledgerRepo,
		CheckoutRepo:   checkoutRepo,
	}
}
