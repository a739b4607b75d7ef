package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// PromotionRepository handles waiting list promotion audit records
type PromotionRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

// NewPromotionRepository creates a new PromotionRepository
func NewPromotionRepository(db Querier) *PromotionRepository {
	return &PromotionRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *PromotionRepository) WithTx(tx pgx.Tx) *PromotionRepository {
	return &PromotionRepository{db: tx, sb: r.sb}
}

// Insert records a new PENDING promotion offer
func (r *PromotionRepository) Insert(ctx context.Context, p *models.WaitingListPromotion) error {
	sql, args, err := r.sb.Insert("waiting_list_promotions").
		Columns("slot_id", "presenter_username", "status", "offered_at", "expires_at").
		Values(p.SlotID, p.PresenterUsername, p.Status, p.OfferedAt, p.ExpiresAt).
		Suffix("RETURNING promotion_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert promotion query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.ID); err != nil {
		logger.Error().Err(err).Int64("slotID", p.SlotID).Str("username", p.PresenterUsername).
			Msg("Error executing insert promotion query")
		return fmt.Errorf("error inserting promotion: %w", err)
	}

	return nil
}

// Resolve closes the PENDING promotion of a (slot, presenter) pair
func (r *PromotionRepository) Resolve(ctx context.Context, slotID int64, username string, status models.PromotionStatus, reason *string, now time.Time) error {
	sql, args, err := r.sb.Update("waiting_list_promotions").
		Set("status", status).
		Set("resolved_at", now).
		Set("resolved_reason", reason).
		Where(squirrel.Eq{
			"slot_id":            slotID,
			"presenter_username": username,
			"status":             models.PromotionStatusPending,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build resolve promotion query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("slotID", slotID).Str("username", username).
			Msg("Error executing resolve promotion query")
		return fmt.Errorf("error resolving promotion: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrAlreadyResolved
	}

	return nil
}

// ListBySlot retrieves a slot's promotion history, newest first
func (r *PromotionRepository) ListBySlot(ctx context.Context, slotID int64) ([]models.WaitingListPromotion, error) {
	sql, args, err := r.sb.Select("promotion_id", "slot_id", "presenter_username", "status",
		"offered_at", "expires_at", "resolved_at", "resolved_reason").
		From("waiting_list_promotions").
		Where(squirrel.Eq{"slot_id": slotID}).
		OrderBy("offered_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list promotions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing promotions: %w", err)
	}
	defer rows.Close()

	var promos []models.WaitingListPromotion
	for rows.Next() {
		var p models.WaitingListPromotion
		err := rows.Scan(&p.ID, &p.SlotID, &p.PresenterUsername, &p.Status,
			&p.OfferedAt, &p.ExpiresAt, &p.ResolvedAt, &p.ResolvedReason)
		if err != nil {
			return nil, fmt.Errorf("error scanning promotion row: %w", err)
		}
		promos = append(promos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating promotion rows: %w", err)
	}

	return promos, nil
}
