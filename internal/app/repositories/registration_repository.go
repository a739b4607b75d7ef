package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// RegistrationRepository handles slot registration database operations
type RegistrationRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

// NewRegistrationRepository creates a new RegistrationRepository
func NewRegistrationRepository(db Querier) *RegistrationRepository {
	return &RegistrationRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *RegistrationRepository) WithTx(tx pgx.Tx) *RegistrationRepository {
	return &RegistrationRepository{db: tx, sb: r.sb}
}

var registrationColumns = []string{
	"slot_id", "presenter_username", "degree", "topic", "seminar_abstract",
	"supervisor_name", "supervisor_email", "approval_status", "approval_token",
	"token_expires_at", "registered_at", "approved_at", "declined_at", "declined_reason",
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.SlotID, &reg.PresenterUsername, &reg.Degree, &reg.Topic,
		&reg.SeminarAbstract, &reg.SupervisorName, &reg.SupervisorEmail,
		&reg.ApprovalStatus, &reg.ApprovalToken, &reg.TokenExpiresAt,
		&reg.RegisteredAt, &reg.ApprovedAt, &reg.DeclinedAt, &reg.DeclinedReason)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationRepository) getWhere(ctx context.Context, pred interface{}, forUpdate bool) (*models.Registration, error) {
	builder := r.sb.Select(registrationColumns...).
		From("slot_registrations").
		Where(pred).
		Limit(1)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get registration query: %w", err)
	}

	reg, err := scanRegistration(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRegistrationNotFound
		}
		logger.Error().Err(err).Msg("Error scanning registration row")
		return nil, fmt.Errorf("error retrieving registration: %w", err)
	}
	return reg, nil
}

// Get retrieves a registration by its composite key
func (r *RegistrationRepository) Get(ctx context.Context, slotID int64, username string) (*models.Registration, error) {
	return r.getWhere(ctx, squirrel.Eq{"slot_id": slotID, "presenter_username": username}, false)
}

// GetForUpdate retrieves a registration by composite key with a row lock
func (r *RegistrationRepository) GetForUpdate(ctx context.Context, slotID int64, username string) (*models.Registration, error) {
	return r.getWhere(ctx, squirrel.Eq{"slot_id": slotID, "presenter_username": username}, true)
}

// GetByToken retrieves a registration by its approval token without locking.
// Token paths use this to learn the slot before taking the slot lock.
func (r *RegistrationRepository) GetByToken(ctx context.Context, token string) (*models.Registration, error) {
	return r.getByToken(ctx, token, false)
}

// GetByTokenForUpdate retrieves a registration by its approval token with a
// row lock, so the token can be consumed atomically in the same transaction.
func (r *RegistrationRepository) GetByTokenForUpdate(ctx context.Context, token string) (*models.Registration, error) {
	return r.getByToken(ctx, token, true)
}

func (r *RegistrationRepository) getByToken(ctx context.Context, token string, forUpdate bool) (*models.Registration, error) {
	reg, err := r.getWhere(ctx, squirrel.Eq{"approval_token": token}, forUpdate)
	if err != nil {
		if errors.Is(err, apperrors.ErrRegistrationNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}
	return reg, nil
}

// ListActiveBySlot retrieves the PENDING and APPROVED registrations of a slot
func (r *RegistrationRepository) ListActiveBySlot(ctx context.Context, slotID int64) ([]models.Registration, error) {
	return r.listWhere(ctx, squirrel.And{
		squirrel.Eq{"slot_id": slotID},
		squirrel.Eq{"approval_status": []models.ApprovalStatus{models.ApprovalStatusPending, models.ApprovalStatusApproved}},
	})
}

// ListActiveByPresenter retrieves a presenter's PENDING and APPROVED registrations
func (r *RegistrationRepository) ListActiveByPresenter(ctx context.Context, username string) ([]models.Registration, error) {
	return r.listWhere(ctx, squirrel.And{
		squirrel.Eq{"presenter_username": username},
		squirrel.Eq{"approval_status": []models.ApprovalStatus{models.ApprovalStatusPending, models.ApprovalStatusApproved}},
	})
}

// ListExpiredPending retrieves PENDING registrations whose token window has passed
func (r *RegistrationRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]models.Registration, error) {
	return r.listWhere(ctx, squirrel.And{
		squirrel.Eq{"approval_status": models.ApprovalStatusPending},
		squirrel.Lt{"token_expires_at": now},
	})
}

func (r *RegistrationRepository) listWhere(ctx context.Context, pred interface{}) ([]models.Registration, error) {
	sql, args, err := r.sb.Select(registrationColumns...).
		From("slot_registrations").
		Where(pred).
		OrderBy("registered_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list registrations query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing registrations: %w", err)
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning registration row: %w", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}

	return regs, nil
}

// Upsert inserts a registration; when a terminal row already exists for the
// same (slot, presenter) pair it is re-activated in place. Callers guard the
// active-duplicate case under the slot lock before calling this.
func (r *RegistrationRepository) Upsert(ctx context.Context, reg *models.Registration) error {
	sql, args, err := r.sb.Insert("slot_registrations").
		Columns("slot_id", "presenter_username", "degree", "topic", "seminar_abstract",
			"supervisor_name", "supervisor_email", "approval_status", "approval_token",
			"token_expires_at", "registered_at").
		Values(reg.SlotID, reg.PresenterUsername, reg.Degree, reg.Topic, reg.SeminarAbstract,
			reg.SupervisorName, reg.SupervisorEmail, reg.ApprovalStatus, reg.ApprovalToken,
			reg.TokenExpiresAt, reg.RegisteredAt).
		Suffix(`ON CONFLICT (slot_id, presenter_username) DO UPDATE SET
			degree = EXCLUDED.degree,
			topic = EXCLUDED.topic,
			seminar_abstract = EXCLUDED.seminar_abstract,
			supervisor_name = EXCLUDED.supervisor_name,
			supervisor_email = EXCLUDED.supervisor_email,
			approval_status = EXCLUDED.approval_status,
			approval_token = EXCLUDED.approval_token,
			token_expires_at = EXCLUDED.token_expires_at,
			registered_at = EXCLUDED.registered_at,
			approved_at = NULL,
			declined_at = NULL,
			declined_reason = NULL`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert registration query: %w", err)
	}

	_, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("slotID", reg.SlotID).Str("username", reg.PresenterUsername).
			Msg("Error executing upsert registration query")
		return fmt.Errorf("error upserting registration: %w", err)
	}

	return nil
}

// MarkApproved resolves a registration as APPROVED and consumes its token
func (r *RegistrationRepository) MarkApproved(ctx context.Context, slotID int64, username string, now time.Time) error {
	return r.resolve(ctx, slotID, username, map[string]interface{}{
		"approval_status":  models.ApprovalStatusApproved,
		"approval_token":   nil,
		"token_expires_at": nil,
		"approved_at":      now,
	})
}

// MarkDeclined resolves a registration as DECLINED and consumes its token
func (r *RegistrationRepository) MarkDeclined(ctx context.Context, slotID int64, username string, reason *string, now time.Time) error {
	return r.resolve(ctx, slotID, username, map[string]interface{}{
		"approval_status":  models.ApprovalStatusDeclined,
		"approval_token":   nil,
		"token_expires_at": nil,
		"declined_at":      now,
		"declined_reason":  reason,
	})
}

// MarkExpired resolves a registration as EXPIRED and consumes its token
func (r *RegistrationRepository) MarkExpired(ctx context.Context, slotID int64, username string, now time.Time) error {
	return r.resolve(ctx, slotID, username, map[string]interface{}{
		"approval_status":  models.ApprovalStatusExpired,
		"approval_token":   nil,
		"token_expires_at": nil,
		"declined_at":      now,
	})
}

func (r *RegistrationRepository) resolve(ctx context.Context, slotID int64, username string, sets map[string]interface{}) error {
	builder := r.sb.Update("slot_registrations").
		Where(squirrel.Eq{"slot_id": slotID, "presenter_username": username})
	for col, val := range sets {
		builder = builder.Set(col, val)
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build resolve registration query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("slotID", slotID).Str("username", username).
			Msg("Error executing resolve registration query")
		return fmt.Errorf("error resolving registration: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrRegistrationNotFound
	}

	return nil
}

// CancelOtherPending cancels a presenter's PENDING registrations on every slot
// except the given one and returns the slot IDs whose capacity was freed.
func (r *RegistrationRepository) CancelOtherPending(ctx context.Context, username string, exceptSlotID int64, now time.Time) ([]int64, error) {
	sql, args, err := r.sb.Update("slot_registrations").
		Set("approval_status", models.ApprovalStatusCancelled).
		Set("approval_token", nil).
		Set("token_expires_at", nil).
		Set("declined_at", now).
		Where(squirrel.And{
			squirrel.Eq{"presenter_username": username},
			squirrel.NotEq{"slot_id": exceptSlotID},
			squirrel.Eq{"approval_status": models.ApprovalStatusPending},
		}).
		Suffix("RETURNING slot_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build cancel pending query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("username", username).Msg("Error cancelling pending registrations")
		return nil, fmt.Errorf("error cancelling pending registrations: %w", err)
	}
	defer rows.Close()

	var slotIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning cancelled slot id: %w", err)
		}
		slotIDs = append(slotIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cancelled rows: %w", err)
	}

	return slotIDs, nil
}
