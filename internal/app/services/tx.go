package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/semscan/semscan-api/internal/app/repositories"
	"github.com/semscan/semscan-api/internal/db"
)

// PgTxRunner runs store operations inside a single Postgres transaction.
type PgTxRunner struct {
	db    *db.PostgresDB
	repos *repositories.Repositories
}

// NewPgTxRunner creates a TxRunner backed by the connection pool
func NewPgTxRunner(database *db.PostgresDB, repos *repositories.Repositories) *PgTxRunner {
	return &PgTxRunner{db: database, repos: repos}
}

// InTx executes fn with every store bound to one transaction
func (r *PgTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, Stores{
			Slots:         r.repos.SlotRepository.WithTx(tx),
			Presenters:    r.repos.PresenterRepository.WithTx(tx),
			Registrations: r.repos.RegistrationRepository.WithTx(tx),
			WaitingList:   r.repos.WaitingListRepository.WithTx(tx),
			Promotions:    r.repos.PromotionRepository.WithTx(tx),
		})
	})
}

// PoolStores returns the pool-bound stores used for plain reads.
func PoolStores(repos *repositories.Repositories) Stores {
	return Stores{
		Slots:         repos.SlotRepository,
		Presenters:    repos.PresenterRepository,
		Registrations: repos.RegistrationRepository,
		WaitingList:   repos.WaitingListRepository,
		Promotions:    repos.PromotionRepository,
	}
}
