package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/app/models/dto"
	"github.com/semscan/semscan-api/internal/config"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// ApprovalOutcome reports what an approve/decline resolution changed, so the
// orchestrating layer can trigger follow-up promotion offers.
type ApprovalOutcome struct {
	Registration *models.Registration
	// FreedSlots lists the slots whose capacity the resolution released:
	// the declined/expired slot itself plus any slots freed by auto-cancelled
	// PENDING registrations of the same presenter.
	FreedSlots []int64
}

// ApprovalService owns the registration lifecycle: creating PENDING
// registrations with emailed supervisor tokens and resolving them by token.
// Every mutation runs under the per-slot row lock; token checks consume the
// token in the same transaction; emails go out only after commit.
type ApprovalService struct {
	cfg      *config.Config
	runner   TxRunner
	stores   Stores
	capacity *CapacityService
	notifier Notifier
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(cfg *config.Config, runner TxRunner, stores Stores, capacity *CapacityService, notifier Notifier) *ApprovalService {
	return &ApprovalService{
		cfg:      cfg,
		runner:   runner,
		stores:   stores,
		capacity: capacity,
		notifier: notifier,
	}
}

// Register creates a PENDING registration for a presenter on a slot and emails
// the supervisor an approval link. The PENDING registration reserves its full
// weight immediately.
func (s *ApprovalService) Register(ctx context.Context, slotID int64, req *dto.RegisterRequest) (*models.Registration, error) {
	var (
		reg       *models.Registration
		presenter *models.Presenter
		slot      *models.SeminarSlot
		token     string
	)

	err := s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
		var err error
		slot, err = st.Slots.LockForUpdate(ctx, slotID)
		if err != nil {
			return err
		}

		presenter, err = st.Presenters.GetByUsername(ctx, req.PresenterUsername)
		if err != nil {
			return err
		}

		now := time.Now()

		existing, err := st.Registrations.Get(ctx, slotID, req.PresenterUsername)
		if err != nil && !errors.Is(err, apperrors.ErrRegistrationNotFound) {
			return err
		}
		if existing != nil && existing.ApprovalStatus.Active() {
			// A PENDING registration with a lapsed token is expired lazily
			// here, which frees the pair for re-registration.
			if existing.ApprovalStatus == models.ApprovalStatusPending && existing.TokenExpired(now) {
				if err := st.Registrations.MarkExpired(ctx, slotID, req.PresenterUsername, now); err != nil {
					return err
				}
			} else {
				return apperrors.ErrAlreadyRegistered
			}
		}

		regs, err := st.Registrations.ListActiveBySlot(ctx, slotID)
		if err != nil {
			return err
		}
		if !s.capacity.Fits(slot, regs, presenter.Degree) {
			return apperrors.ErrCapacityExceeded
		}

		// A presenter cannot hold a registration and a queue place on the
		// same slot. The direct registration supersedes the queue place; a
		// live promotion offer on the vacated entry is closed as declined.
		queued, err := st.WaitingList.Get(ctx, slotID, req.PresenterUsername)
		if err != nil && !errors.Is(err, apperrors.ErrWaitingListEntryNotFound) {
			return err
		}
		if queued != nil {
			if queued.PromotionToken != nil {
				reason := "registered directly for the slot"
				err := st.Promotions.Resolve(ctx, slotID, req.PresenterUsername,
					models.PromotionStatusDeclined, &reason, now)
				if err != nil && !errors.Is(err, apperrors.ErrAlreadyResolved) {
					return err
				}
			}
			if err := st.WaitingList.Remove(ctx, queued); err != nil {
				return err
			}
		}

		token = uuid.NewString()
		expiresAt := now.Add(s.cfg.ApprovalTokenTTL())
		reg = &models.Registration{
			SlotID:            slotID,
			PresenterUsername: presenter.Username,
			Degree:            presenter.Degree,
			Topic:             req.Topic,
			SeminarAbstract:   req.SeminarAbstract,
			SupervisorName:    req.SupervisorName,
			SupervisorEmail:   req.SupervisorEmail,
			ApprovalStatus:    models.ApprovalStatusPending,
			ApprovalToken:     &token,
			TokenExpiresAt:    &expiresAt,
			RegisteredAt:      now,
		}

		return st.Registrations.Upsert(ctx, reg)
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendApprovalRequest(presenter, slot, reg, token); err != nil {
		logger.Error().Err(err).
			Int64("slotID", slotID).
			Str("username", presenter.Username).
			Msg("Failed to send supervisor approval email")
	}

	logger.Info().
		Int64("slotID", slotID).
		Str("username", presenter.Username).
		Str("tokenPrefix", logger.TokenPrefix(token)).
		Msg("Registration created, supervisor approval requested")

	return reg, nil
}

// ApproveByToken resolves the registration behind an approval token as
// APPROVED. The check-and-consume is atomic: concurrent clicks on the same
// link serialize on the registration row and the loser sees AlreadyResolved.
func (s *ApprovalService) ApproveByToken(ctx context.Context, token string) (*ApprovalOutcome, error) {
	return s.resolveByToken(ctx, token, true, "")
}

// DeclineByToken resolves the registration behind an approval token as
// DECLINED with an optional reason.
func (s *ApprovalService) DeclineByToken(ctx context.Context, token string, reason string) (*ApprovalOutcome, error) {
	return s.resolveByToken(ctx, token, false, reason)
}

func (s *ApprovalService) resolveByToken(ctx context.Context, token string, approve bool, reason string) (*ApprovalOutcome, error) {
	// Peek at the token row to learn the slot, then take the slot lock first.
	// All mutating paths acquire locks in slot-then-row order.
	peek, err := s.stores.Registrations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	outcome := &ApprovalOutcome{}
	var resolved error

	err = s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
		if _, err := st.Slots.LockForUpdate(ctx, peek.SlotID); err != nil {
			return err
		}

		reg, err := st.Registrations.GetByTokenForUpdate(ctx, token)
		if err != nil {
			return err
		}

		resolved, err = s.resolveLocked(ctx, st, reg, approve, reason, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return outcome, resolved
	}

	s.notifyResolution(ctx, outcome.Registration, approve, reason)
	return outcome, nil
}

// Approve resolves a registration addressed by its composite key, checking the
// presented token against the stored one. This serves the per-registration
// link format of older approval emails.
func (s *ApprovalService) Approve(ctx context.Context, slotID int64, username, token string) (*ApprovalOutcome, error) {
	return s.resolveByKey(ctx, slotID, username, token, true, "")
}

// Decline is the composite-key counterpart of DeclineByToken.
func (s *ApprovalService) Decline(ctx context.Context, slotID int64, username, token, reason string) (*ApprovalOutcome, error) {
	return s.resolveByKey(ctx, slotID, username, token, false, reason)
}

func (s *ApprovalService) resolveByKey(ctx context.Context, slotID int64, username, token string, approve bool, reason string) (*ApprovalOutcome, error) {
	outcome := &ApprovalOutcome{}
	var resolved error

	err := s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
		if _, err := st.Slots.LockForUpdate(ctx, slotID); err != nil {
			return err
		}

		reg, err := st.Registrations.GetForUpdate(ctx, slotID, username)
		if err != nil {
			return err
		}

		if reg.ApprovalStatus != models.ApprovalStatusPending {
			return apperrors.ErrAlreadyResolved
		}
		if reg.ApprovalToken == nil || *reg.ApprovalToken != token {
			return apperrors.ErrTokenInvalid
		}

		resolved, err = s.resolveLocked(ctx, st, reg, approve, reason, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return outcome, resolved
	}

	s.notifyResolution(ctx, outcome.Registration, approve, reason)
	return outcome, nil
}

// resolveLocked applies an approve/decline to a locked PENDING registration.
// The returned error value distinguishes conditions that must COMMIT their
// side effects (token expiry) from the transaction error: a non-nil first
// return is reported to the caller after the commit succeeds.
func (s *ApprovalService) resolveLocked(ctx context.Context, st Stores, reg *models.Registration, approve bool, reason string, outcome *ApprovalOutcome) (error, error) {
	if reg.ApprovalStatus != models.ApprovalStatusPending {
		return nil, apperrors.ErrAlreadyResolved
	}

	now := time.Now()

	if reg.TokenExpired(now) {
		// The expiry mutation commits even though the caller sees an error.
		if err := st.Registrations.MarkExpired(ctx, reg.SlotID, reg.PresenterUsername, now); err != nil {
			return nil, err
		}
		reg.ApprovalStatus = models.ApprovalStatusExpired
		outcome.Registration = reg
		outcome.FreedSlots = append(outcome.FreedSlots, reg.SlotID)
		return apperrors.ErrTokenExpired, nil
	}

	if approve {
		if err := st.Registrations.MarkApproved(ctx, reg.SlotID, reg.PresenterUsername, now); err != nil {
			return nil, err
		}
		reg.ApprovalStatus = models.ApprovalStatusApproved
		reg.ApprovedAt = &now

		// One approved seat per presenter: leave every waiting list and drop
		// other pending claims.
		removed, err := st.WaitingList.RemoveForPresenter(ctx, reg.PresenterUsername)
		if err != nil {
			return nil, err
		}
		if removed != nil && removed.PromotionToken != nil {
			reason := "registration approved on another slot"
			if err := st.Promotions.Resolve(ctx, removed.SlotID, removed.PresenterUsername,
				models.PromotionStatusDeclined, &reason, now); err != nil && !errors.Is(err, apperrors.ErrAlreadyResolved) {
				return nil, err
			}
		}

		freed, err := st.Registrations.CancelOtherPending(ctx, reg.PresenterUsername, reg.SlotID, now)
		if err != nil {
			return nil, err
		}
		outcome.FreedSlots = append(outcome.FreedSlots, freed...)
	} else {
		var declineReason *string
		if reason != "" {
			declineReason = &reason
		}
		if err := st.Registrations.MarkDeclined(ctx, reg.SlotID, reg.PresenterUsername, declineReason, now); err != nil {
			return nil, err
		}
		reg.ApprovalStatus = models.ApprovalStatusDeclined
		reg.DeclinedAt = &now
		reg.DeclinedReason = declineReason
		outcome.FreedSlots = append(outcome.FreedSlots, reg.SlotID)
	}

	outcome.Registration = reg
	return nil, nil
}

func (s *ApprovalService) notifyResolution(ctx context.Context, reg *models.Registration, approved bool, reason string) {
	presenter, err := s.stores.Presenters.GetByUsername(ctx, reg.PresenterUsername)
	if err != nil {
		logger.Error().Err(err).Str("username", reg.PresenterUsername).Msg("Failed to load presenter for result email")
		return
	}
	slot, err := s.stores.Slots.GetByID(ctx, reg.SlotID)
	if err != nil {
		logger.Error().Err(err).Int64("slotID", reg.SlotID).Msg("Failed to load slot for result email")
		return
	}

	if err := s.notifier.SendApprovalResult(presenter, slot, approved, reason); err != nil {
		logger.Error().Err(err).
			Int64("slotID", reg.SlotID).
			Str("username", reg.PresenterUsername).
			Msg("Failed to send approval result email")
	}

	logger.Info().
		Int64("slotID", reg.SlotID).
		Str("username", reg.PresenterUsername).
		Bool("approved", approved).
		Msg("Registration resolved")
}

// ExpireDueRegistrations marks every PENDING registration with a lapsed token
// as EXPIRED and returns the slots whose capacity was freed. The read paths
// already expire lazily; this sweeper keeps the table tidy between reads.
func (s *ApprovalService) ExpireDueRegistrations(ctx context.Context) ([]int64, error) {
	due, err := s.stores.Registrations.ListExpiredPending(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	var freed []int64
	for i := range due {
		reg := due[i]
		err := s.runner.InTx(ctx, func(ctx context.Context, st Stores) error {
			if _, err := st.Slots.LockForUpdate(ctx, reg.SlotID); err != nil {
				return err
			}

			locked, err := st.Registrations.GetForUpdate(ctx, reg.SlotID, reg.PresenterUsername)
			if err != nil {
				return err
			}

			now := time.Now()
			// Re-check under the lock: the supervisor may have resolved the
			// registration between the sweep read and this transaction.
			if locked.ApprovalStatus != models.ApprovalStatusPending || !locked.TokenExpired(now) {
				return nil
			}

			if err := st.Registrations.MarkExpired(ctx, reg.SlotID, reg.PresenterUsername, now); err != nil {
				return err
			}
			freed = append(freed, reg.SlotID)
			return nil
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrRegistrationNotFound) || errors.Is(err, apperrors.ErrSlotNotFound) {
				continue
			}
			return freed, err
		}
	}

	if len(freed) > 0 {
		logger.Info().Int("count", len(freed)).Msg("Expired overdue pending registrations")
	}

	return freed, nil
}
