package services

import (
	"context"
	"errors"
	"time"

	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/app/models/dto"
	"github.com/semscan/semscan-api/internal/config"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// WaitingListService manages the ordered per-slot queues. Positions are dense
// 1..N in arrival order and a presenter holds at most one queue place
// system-wide.
type WaitingListService struct {
	cfg      *config.Config
	runner   TxRunner
	stores   Stores
	notifier Notifier
}

// NewWaitingListService creates a new WaitingListService
func NewWaitingListService(cfg *config.Config, runner TxRunner, stores Stores, notifier Notifier) *WaitingListService {
	return &WaitingListService{
		cfg:      cfg,
		runner:   runner,
		stores:   stores,
		notifier: notifier,
	}
}

// Add appends a presenter to a slot's waiting list at position N+1.
func (s *WaitingListService) Add(ctx context.Context, req *dto.AddWaitingListRequest) (*models.WaitingListEntry, error) {
	var entry *models.WaitingListEntry

	err := s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
		if _, err := st.Slots.LockForUpdate(ctx, req.SlotID); err != nil {
			return err
		}

		presenter, err := st.Presenters.GetByUsername(ctx, req.PresenterUsername)
		if err != nil {
			return err
		}

		existing, err := st.Registrations.Get(ctx, req.SlotID, req.PresenterUsername)
		if err != nil && !errors.Is(err, apperrors.ErrRegistrationNotFound) {
			return err
		}
		if existing != nil && existing.ApprovalStatus.Active() {
			return apperrors.ErrAlreadyRegistered
		}

		queued, err := st.WaitingList.ExistsForPresenter(ctx, req.PresenterUsername)
		if err != nil {
			return err
		}
		if queued {
			return apperrors.ErrAlreadyQueued
		}

		if limit := s.cfg.Seminar.WaitingListLimit; limit > 0 {
			count, err := st.WaitingList.CountBySlot(ctx, req.SlotID)
			if err != nil {
				return err
			}
			if count >= limit {
				return apperrors.ErrWaitingListFull
			}
		}

		maxPos, err := st.WaitingList.MaxPosition(ctx, req.SlotID)
		if err != nil {
			return err
		}

		entry = &models.WaitingListEntry{
			SlotID:            req.SlotID,
			PresenterUsername: presenter.Username,
			Degree:            presenter.Degree,
			Topic:             req.Topic,
			SupervisorName:    req.SupervisorName,
			SupervisorEmail:   req.SupervisorEmail,
			Position:          maxPos + 1,
			AddedAt:           time.Now(),
		}

		return st.WaitingList.Insert(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int64("slotID", entry.SlotID).
		Str("username", entry.PresenterUsername).
		Int("position", entry.Position).
		Msg("Presenter added to waiting list")

	return entry, nil
}

// Get returns a slot's waiting list ordered by position.
func (s *WaitingListService) Get(ctx context.Context, slotID int64) ([]models.WaitingListEntry, error) {
	if _, err := s.stores.Slots.GetByID(ctx, slotID); err != nil {
		return nil, err
	}
	return s.stores.WaitingList.ListBySlot(ctx, slotID)
}

// IsOnWaitingList reports whether the presenter is queued on the given slot.
func (s *WaitingListService) IsOnWaitingList(ctx context.Context, slotID int64, username string) (bool, error) {
	_, err := s.stores.WaitingList.Get(ctx, slotID, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrWaitingListEntryNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsOnAnyWaitingList reports whether the presenter is queued anywhere.
func (s *WaitingListService) IsOnAnyWaitingList(ctx context.Context, username string) (bool, error) {
	return s.stores.WaitingList.ExistsForPresenter(ctx, username)
}

// Remove takes a presenter off a slot's queue and closes the position gap.
// An outstanding promotion offer on the entry is closed as declined.
func (s *WaitingListService) Remove(ctx context.Context, slotID int64, username string) error {
	var removed *models.WaitingListEntry
	var slot *models.SeminarSlot

	err := s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
		var err error
		slot, err = st.Slots.LockForUpdate(ctx, slotID)
		if err != nil {
			return err
		}

		entry, err := st.WaitingList.Get(ctx, slotID, username)
		if err != nil {
			return err
		}

		if entry.PromotionToken != nil {
			reason := "removed from waiting list"
			err := st.Promotions.Resolve(ctx, slotID, username, models.PromotionStatusDeclined, &reason, time.Now())
			if err != nil && !errors.Is(err, apperrors.ErrAlreadyResolved) {
				return err
			}
		}

		if err := st.WaitingList.Remove(ctx, entry); err != nil {
			return err
		}

		removed = entry
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.notifier.SendWaitingListCancellation(removed, slot); err != nil {
		logger.Error().Err(err).
			Int64("slotID", slotID).
			Str("username", username).
			Msg("Failed to send waiting list cancellation email")
	}

	logger.Info().
		Int64("slotID", slotID).
		Str("username", username).
		Int("position", removed.Position).
		Msg("Presenter removed from waiting list")

	return nil
}
