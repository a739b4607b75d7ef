package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// SlotRepository handles seminar slot database operations
type SlotRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

// NewSlotRepository creates a new SlotRepository
func NewSlotRepository(db Querier) *SlotRepository {
	return &SlotRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *SlotRepository) WithTx(tx pgx.Tx) *SlotRepository {
	return &SlotRepository{db: tx, sb: r.sb}
}

var slotColumns = []string{"slot_id", "slot_date", "start_time", "end_time", "building", "room", "capacity"}

func scanSlot(row pgx.Row) (*models.SeminarSlot, error) {
	var slot models.SeminarSlot
	err := row.Scan(&slot.ID, &slot.SlotDate, &slot.StartTime, &slot.EndTime,
		&slot.Building, &slot.Room, &slot.Capacity)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// GetByID retrieves a slot by its ID
func (r *SlotRepository) GetByID(ctx context.Context, slotID int64) (*models.SeminarSlot, error) {
	sql, args, err := r.sb.Select(slotColumns...).
		From("seminar_slots").
		Where(squirrel.Eq{"slot_id": slotID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get slot query: %w", err)
	}

	slot, err := scanSlot(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSlotNotFound
		}
		logger.Error().Err(err).Int64("slotID", slotID).Msg("Error scanning slot row")
		return nil, fmt.Errorf("error retrieving slot: %w", err)
	}

	return slot, nil
}

// LockForUpdate acquires the per-slot row lock that serializes all mutating
// operations on a slot. Must be called inside a transaction.
func (r *SlotRepository) LockForUpdate(ctx context.Context, slotID int64) (*models.SeminarSlot, error) {
	sql, args, err := r.sb.Select(slotColumns...).
		From("seminar_slots").
		Where(squirrel.Eq{"slot_id": slotID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock slot query: %w", err)
	}

	slot, err := scanSlot(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSlotNotFound
		}
		logger.Error().Err(err).Int64("slotID", slotID).Msg("Error locking slot row")
		return nil, fmt.Errorf("error locking slot: %w", err)
	}

	return slot, nil
}

// List retrieves all slots ordered by date and start time
func (r *SlotRepository) List(ctx context.Context) ([]models.SeminarSlot, error) {
	sql, args, err := r.sb.Select(slotColumns...).
		From("seminar_slots").
		OrderBy("slot_date", "start_time", "slot_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list slots query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing slots: %w", err)
	}
	defer rows.Close()

	var slots []models.SeminarSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning slot row: %w", err)
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slot rows: %w", err)
	}

	return slots, nil
}

// Create inserts a new slot and returns its generated ID
func (r *SlotRepository) Create(ctx context.Context, slot *models.SeminarSlot) error {
	sql, args, err := r.sb.Insert("seminar_slots").
		Columns("slot_date", "start_time", "end_time", "building", "room", "capacity").
		Values(slot.SlotDate, slot.StartTime, slot.EndTime, slot.Building, slot.Room, slot.Capacity).
		Suffix("RETURNING slot_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create slot query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&slot.ID); err != nil {
		logger.Error().Err(err).Msg("Error executing create slot query")
		return fmt.Errorf("error creating slot: %w", err)
	}

	return nil
}
