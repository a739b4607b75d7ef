package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	SlotRepository         *SlotRepository
	PresenterRepository    *PresenterRepository
	RegistrationRepository *RegistrationRepository
	WaitingListRepository  *WaitingListRepository
	PromotionRepository    *PromotionRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		SlotRepository:         NewSlotRepository(db),
		PresenterRepository:    NewPresenterRepository(db),
		RegistrationRepository: NewRegistrationRepository(db),
		WaitingListRepository:  NewWaitingListRepository(db),
		PromotionRepository:    NewPromotionRepository(db),
	}
}
