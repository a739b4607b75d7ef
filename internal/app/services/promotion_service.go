package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/config"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// PromotionOutcome reports how a promotion token was resolved.
type PromotionOutcome struct {
	SlotID            int64
	PresenterUsername string
	// Registration is the PENDING registration created by a confirmed offer.
	Registration *models.Registration
}

// PromotionService extends promotion offers to waiting list heads and resolves
// them by token. Declines and expiries cascade: whenever a resolution leaves
// free capacity and a non-empty queue, the next head is offered immediately.
type PromotionService struct {
	cfg      *config.Config
	runner   TxRunner
	stores   Stores
	capacity *CapacityService
	notifier Notifier
}

// NewPromotionService creates a new PromotionService
func NewPromotionService(cfg *config.Config, runner TxRunner, stores Stores, capacity *CapacityService, notifier Notifier) *PromotionService {
	return &PromotionService{
		cfg:      cfg,
		runner:   runner,
		stores:   stores,
		capacity: capacity,
		notifier: notifier,
	}
}

// offerCandidate carries what the post-commit offer email needs.
type offerCandidate struct {
	entry *models.WaitingListEntry
	slot  *models.SeminarSlot
	token string
}

// Offer extends a promotion offer to the head of a slot's queue when capacity
// allows. It is a no-op when the queue is empty, when the head already holds a
// live token (at most one outstanding offer per slot), or when the head's
// weight does not fit the current occupancy. Entries holding lapsed tokens at
// the head are expired and skipped in the same pass.
func (s *PromotionService) Offer(ctx context.Context, slotID int64) (*models.WaitingListEntry, error) {
	var candidate *offerCandidate

	err := s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
		slot, err := st.Slots.LockForUpdate(ctx, slotID)
		if err != nil {
			return err
		}

		for {
			head, err := st.WaitingList.GetHeadForUpdate(ctx, slotID)
			if err != nil {
				if errors.Is(err, apperrors.ErrWaitingListEntryNotFound) {
					return nil
				}
				return err
			}

			now := time.Now()

			if head.HasLiveOffer(now) {
				return nil
			}

			if head.OfferExpired(now) {
				if err := s.expireEntry(ctx, st, head, now); err != nil {
					return err
				}
				continue
			}

			regs, err := st.Registrations.ListActiveBySlot(ctx, slotID)
			if err != nil {
				return err
			}
			if !s.capacity.Fits(slot, regs, head.Degree) {
				return nil
			}

			token := uuid.NewString()
			expiresAt := now.Add(s.cfg.PromotionTokenTTL())
			if err := st.WaitingList.SetPromotionToken(ctx, head.ID, token, now, expiresAt); err != nil {
				return err
			}
			if err := st.Promotions.Insert(ctx, &models.WaitingListPromotion{
				SlotID:            slotID,
				PresenterUsername: head.PresenterUsername,
				Status:            models.PromotionStatusPending,
				OfferedAt:         now,
				ExpiresAt:         expiresAt,
			}); err != nil {
				return err
			}

			head.PromotionToken = &token
			head.PromotionOfferedAt = &now
			head.PromotionExpiresAt = &expiresAt
			candidate = &offerCandidate{entry: head, slot: slot, token: token}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, nil
	}

	s.sendOffer(ctx, candidate)
	return candidate.entry, nil
}

func (s *PromotionService) sendOffer(ctx context.Context, c *offerCandidate) {
	presenter, err := s.stores.Presenters.GetByUsername(ctx, c.entry.PresenterUsername)
	if err != nil {
		logger.Error().Err(err).Str("username", c.entry.PresenterUsername).Msg("Failed to load presenter for offer email")
		return
	}

	if err := s.notifier.SendPromotionOffer(presenter, c.slot, c.entry, c.token); err != nil {
		logger.Error().Err(err).
			Int64("slotID", c.slot.ID).
			Str("username", c.entry.PresenterUsername).
			Msg("Failed to send promotion offer email")
	}

	logger.Info().
		Int64("slotID", c.slot.ID).
		Str("username", c.entry.PresenterUsername).
		Str("tokenPrefix", logger.TokenPrefix(c.token)).
		Msg("Promotion offer extended")
}

// expireEntry closes a lapsed offer: the audit row flips to EXPIRED and the
// entry leaves the queue, the positions behind it closing up.
func (s *PromotionService) expireEntry(ctx context.Context, st Stores, entry *models.WaitingListEntry, now time.Time) error {
	err := st.Promotions.Resolve(ctx, entry.SlotID, entry.PresenterUsername, models.PromotionStatusExpired, nil, now)
	if err != nil && !errors.Is(err, apperrors.ErrAlreadyResolved) {
		return err
	}
	return st.WaitingList.Remove(ctx, entry)
}

// Confirm accepts a promotion offer by token: the entry leaves the queue and a
// PENDING registration is created, restarting the supervisor approval flow.
// When the slot can no longer fit the candidate, the entry keeps its head
// position with the token cleared and the caller sees SlotNoLongerAvailable.
func (s *PromotionService) Confirm(ctx context.Context, token string) (*PromotionOutcome, error) {
	peek, err := s.stores.WaitingList.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	outcome := &PromotionOutcome{SlotID: peek.SlotID, PresenterUsername: peek.PresenterUsername}
	var (
		resolved      error
		cascade       bool
		approvalToken string
		presenter     *models.Presenter
		slot          *models.SeminarSlot
	)

	err = s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
		var err error
		slot, err = st.Slots.LockForUpdate(ctx, peek.SlotID)
		if err != nil {
			return err
		}

		entry, err := st.WaitingList.GetByTokenForUpdate(ctx, token)
		if err != nil {
			return err
		}

		now := time.Now()

		if entry.OfferExpired(now) {
			if err := s.expireEntry(ctx, st, entry, now); err != nil {
				return err
			}
			resolved = apperrors.ErrTokenExpired
			cascade = true
			return nil
		}

		presenter, err = st.Presenters.GetByUsername(ctx, entry.PresenterUsername)
		if err != nil {
			return err
		}

		regs, err := st.Registrations.ListActiveBySlot(ctx, entry.SlotID)
		if err != nil {
			return err
		}
		if !s.capacity.Fits(slot, regs, entry.Degree) {
			// Capacity disappeared between offer and confirm. The entry keeps
			// its place at the head for the next freeing event.
			if err := st.WaitingList.ClearPromotionToken(ctx, entry.ID); err != nil {
				return err
			}
			reason := "slot capacity no longer available at confirmation"
			err := st.Promotions.Resolve(ctx, entry.SlotID, entry.PresenterUsername,
				models.PromotionStatusDeclined, &reason, now)
			if err != nil && !errors.Is(err, apperrors.ErrAlreadyResolved) {
				return err
			}
			resolved = apperrors.ErrSlotNoLongerAvailable
			return nil
		}

		if err := st.WaitingList.Remove(ctx, entry); err != nil {
			return err
		}

		approvalToken = uuid.NewString()
		expiresAt := now.Add(s.cfg.ApprovalTokenTTL())
		reg := &models.Registration{
			SlotID:            entry.SlotID,
			PresenterUsername: entry.PresenterUsername,
			Degree:            entry.Degree,
			Topic:             entry.Topic,
			SupervisorName:    entry.SupervisorName,
			SupervisorEmail:   entry.SupervisorEmail,
			ApprovalStatus:    models.ApprovalStatusPending,
			ApprovalToken:     &approvalToken,
			TokenExpiresAt:    &expiresAt,
			RegisteredAt:      now,
		}
		if err := st.Registrations.Upsert(ctx, reg); err != nil {
			return err
		}

		if err := st.Promotions.Resolve(ctx, entry.SlotID, entry.PresenterUsername,
			models.PromotionStatusApproved, nil, now); err != nil && !errors.Is(err, apperrors.ErrAlreadyResolved) {
			return err
		}

		outcome.Registration = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cascade {
		s.cascade(ctx, outcome.SlotID)
	}
	if resolved != nil {
		return outcome, resolved
	}

	if err := s.notifier.SendApprovalRequest(presenter, slot, outcome.Registration, approvalToken); err != nil {
		logger.Error().Err(err).
			Int64("slotID", outcome.SlotID).
			Str("username", outcome.PresenterUsername).
			Msg("Failed to send supervisor approval email after promotion")
	}

	logger.Info().
		Int64("slotID", outcome.SlotID).
		Str("username", outcome.PresenterUsername).
		Msg("Promotion confirmed, supervisor approval requested")

	return outcome, nil
}

// Decline rejects a promotion offer by token: the entry leaves the queue
// entirely and the freed head position triggers the next offer.
func (s *PromotionService) Decline(ctx context.Context, token string) (*PromotionOutcome, error) {
	peek, err := s.stores.WaitingList.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	outcome := &PromotionOutcome{SlotID: peek.SlotID, PresenterUsername: peek.PresenterUsername}
	var resolved error

	err = s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
		if _, err := st.Slots.LockForUpdate(ctx, peek.SlotID); err != nil {
			return err
		}

		entry, err := st.WaitingList.GetByTokenForUpdate(ctx, token)
		if err != nil {
			return err
		}

		now := time.Now()

		if entry.OfferExpired(now) {
			if err := s.expireEntry(ctx, st, entry, now); err != nil {
				return err
			}
			resolved = apperrors.ErrTokenExpired
			return nil
		}

		reason := "offer declined by presenter"
		err = st.Promotions.Resolve(ctx, entry.SlotID, entry.PresenterUsername,
			models.PromotionStatusDeclined, &reason, now)
		if err != nil && !errors.Is(err, apperrors.ErrAlreadyResolved) {
			return err
		}

		return st.WaitingList.Remove(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	// Both a decline and a lapsed offer vacate the head, so the next
	// candidate is offered either way.
	s.cascade(ctx, outcome.SlotID)

	if resolved != nil {
		return outcome, resolved
	}

	logger.Info().
		Int64("slotID", outcome.SlotID).
		Str("username", outcome.PresenterUsername).
		Msg("Promotion offer declined")

	return outcome, nil
}

func (s *PromotionService) cascade(ctx context.Context, slotID int64) {
	if _, err := s.Offer(ctx, slotID); err != nil {
		logger.Error().Err(err).Int64("slotID", slotID).Msg("Cascade promotion offer failed")
	}
}

// ExpireDuePromotions expires every lapsed offer and cascades the freed head
// positions. Returns the number of offers expired.
func (s *PromotionService) ExpireDuePromotions(ctx context.Context) (int, error) {
	due, err := s.stores.WaitingList.ListExpiredOffers(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	expired := 0
	slots := make(map[int64]struct{})
	for i := range due {
		token := due[i].PromotionToken
		if token == nil {
			continue
		}

		err := s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
			if _, err := st.Slots.LockForUpdate(ctx, due[i].SlotID); err != nil {
				return err
			}

			entry, err := st.WaitingList.GetByTokenForUpdate(ctx, *token)
			if err != nil {
				// Resolved between the sweep read and this transaction.
				if errors.Is(err, apperrors.ErrTokenInvalid) {
					return nil
				}
				return err
			}

			now := time.Now()
			if !entry.OfferExpired(now) {
				return nil
			}

			if err := s.expireEntry(ctx, st, entry, now); err != nil {
				return err
			}
			expired++
			slots[entry.SlotID] = struct{}{}
			return nil
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrSlotNotFound) {
				continue
			}
			return expired, err
		}
	}

	for slotID := range slots {
		s.cascade(ctx, slotID)
	}

	if expired > 0 {
		logger.Info().Int("count", expired).Msg("Expired overdue promotion offers")
	}

	return expired, nil
}

// History returns a slot's promotion audit trail.
func (s *PromotionService) History(ctx context.Context, slotID int64) ([]models.WaitingListPromotion, error) {
	if _, err := s.stores.Slots.GetByID(ctx, slotID); err != nil {
		return nil, err
	}
	return s.stores.Promotions.ListBySlot(ctx, slotID)
}
