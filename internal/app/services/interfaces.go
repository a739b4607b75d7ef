package services

import (
	"context"
	"time"

	"github.com/semscan/semscan-api/internal/app/models"
)

// SlotStore is the slot persistence surface the services depend on.
type SlotStore interface {
	GetByID(ctx context.Context, slotID int64) (*models.SeminarSlot, error)
	LockForUpdate(ctx context.Context, slotID int64) (*models.SeminarSlot, error)
	List(ctx context.Context) ([]models.SeminarSlot, error)
	Create(ctx context.Context, slot *models.SeminarSlot) error
}

// PresenterStore is the presenter persistence surface.
type PresenterStore interface {
	GetByUsername(ctx context.Context, username string) (*models.Presenter, error)
	Create(ctx context.Context, p *models.Presenter) error
}

// RegistrationStore is the registration persistence surface.
type RegistrationStore interface {
	Get(ctx context.Context, slotID int64, username string) (*models.Registration, error)
	GetForUpdate(ctx context.Context, slotID int64, username string) (*models.Registration, error)
	GetByToken(ctx context.Context, token string) (*models.Registration, error)
	GetByTokenForUpdate(ctx context.Context, token string) (*models.Registration, error)
	ListActiveBySlot(ctx context.Context, slotID int64) ([]models.Registration, error)
	ListActiveByPresenter(ctx context.Context, username string) ([]models.Registration, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]models.Registration, error)
	Upsert(ctx context.Context, reg *models.Registration) error
	MarkApproved(ctx context.Context, slotID int64, username string, now time.Time) error
	MarkDeclined(ctx context.Context, slotID int64, username string, reason *string, now time.Time) error
	MarkExpired(ctx context.Context, slotID int64, username string, now time.Time) error
	CancelOtherPending(ctx context.Context, username string, exceptSlotID int64, now time.Time) ([]int64, error)
}

// WaitingListStore is the waiting list persistence surface.
type WaitingListStore interface {
	Get(ctx context.Context, slotID int64, username string) (*models.WaitingListEntry, error)
	GetHeadForUpdate(ctx context.Context, slotID int64) (*models.WaitingListEntry, error)
	GetByToken(ctx context.Context, token string) (*models.WaitingListEntry, error)
	GetByTokenForUpdate(ctx context.Context, token string) (*models.WaitingListEntry, error)
	ListBySlot(ctx context.Context, slotID int64) ([]models.WaitingListEntry, error)
	ListExpiredOffers(ctx context.Context, now time.Time) ([]models.WaitingListEntry, error)
	CountBySlot(ctx context.Context, slotID int64) (int, error)
	ExistsForPresenter(ctx context.Context, username string) (bool, error)
	MaxPosition(ctx context.Context, slotID int64) (int, error)
	Insert(ctx context.Context, e *models.WaitingListEntry) error
	Remove(ctx context.Context, entry *models.WaitingListEntry) error
	RemoveForPresenter(ctx context.Context, username string) (*models.WaitingListEntry, error)
	SetPromotionToken(ctx context.Context, entryID int64, token string, offeredAt, expiresAt time.Time) error
	ClearPromotionToken(ctx context.Context, entryID int64) error
}

// PromotionStore is the promotion audit persistence surface.
type PromotionStore interface {
	Insert(ctx context.Context, p *models.WaitingListPromotion) error
	Resolve(ctx context.Context, slotID int64, username string, status models.PromotionStatus, reason *string, now time.Time) error
	ListBySlot(ctx context.Context, slotID int64) ([]models.WaitingListPromotion, error)
}

// Stores bundles every persistence surface, bound either to the pool or to
// one transaction.
type Stores struct {
	Slots         SlotStore
	Presenters    PresenterStore
	Registrations RegistrationStore
	WaitingList   WaitingListStore
	Promotions    PromotionStore
}

// TxRunner executes a function against transaction-bound stores. The function
// either commits as a whole or rolls back as a whole.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// Notifier sends the outbound emails of the registration and promotion flows.
// Sends are best-effort: they happen strictly after commit and a failure is
// logged by the caller, never propagated into state changes.
type Notifier interface {
	SendApprovalRequest(presenter *models.Presenter, slot *models.SeminarSlot, reg *models.Registration, token string) error
	SendApprovalResult(presenter *models.Presenter, slot *models.SeminarSlot, approved bool, reason string) error
	SendPromotionOffer(presenter *models.Presenter, slot *models.SeminarSlot, entry *models.WaitingListEntry, token string) error
	SendWaitingListCancellation(entry *models.WaitingListEntry, slot *models.SeminarSlot) error
}
