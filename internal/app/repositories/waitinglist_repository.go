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
	"github.com/semscan/semscan-api/internal/pkg/dberrors"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// WaitingListRepository handles waiting list database operations
type WaitingListRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

// NewWaitingListRepository creates a new WaitingListRepository
func NewWaitingListRepository(db Querier) *WaitingListRepository {
	return &WaitingListRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *WaitingListRepository) WithTx(tx pgx.Tx) *WaitingListRepository {
	return &WaitingListRepository{db: tx, sb: r.sb}
}

var waitingListColumns = []string{
	"entry_id", "slot_id", "presenter_username", "degree", "topic",
	"supervisor_name", "supervisor_email", "position", "added_at",
	"promotion_token", "promotion_offered_at", "promotion_expires_at",
}

func scanWaitingListEntry(row pgx.Row) (*models.WaitingListEntry, error) {
	var e models.WaitingListEntry
	err := row.Scan(&e.ID, &e.SlotID, &e.PresenterUsername, &e.Degree, &e.Topic,
		&e.SupervisorName, &e.SupervisorEmail, &e.Position, &e.AddedAt,
		&e.PromotionToken, &e.PromotionOfferedAt, &e.PromotionExpiresAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *WaitingListRepository) getWhere(ctx context.Context, pred interface{}, forUpdate bool) (*models.WaitingListEntry, error) {
	builder := r.sb.Select(waitingListColumns...).
		From("waiting_list").
		Where(pred).
		OrderBy("position").
		Limit(1)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get waiting list entry query: %w", err)
	}

	entry, err := scanWaitingListEntry(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWaitingListEntryNotFound
		}
		logger.Error().Err(err).Msg("Error scanning waiting list row")
		return nil, fmt.Errorf("error retrieving waiting list entry: %w", err)
	}
	return entry, nil
}

// Get retrieves a presenter's entry on a slot's waiting list
func (r *WaitingListRepository) Get(ctx context.Context, slotID int64, username string) (*models.WaitingListEntry, error) {
	return r.getWhere(ctx, squirrel.Eq{"slot_id": slotID, "presenter_username": username}, false)
}

// GetHeadForUpdate retrieves the position-1 entry of a slot with a row lock
func (r *WaitingListRepository) GetHeadForUpdate(ctx context.Context, slotID int64) (*models.WaitingListEntry, error) {
	return r.getWhere(ctx, squirrel.Eq{"slot_id": slotID}, true)
}

// GetByToken retrieves an entry by its promotion token without locking.
// Token paths use this to learn the slot before taking the slot lock.
func (r *WaitingListRepository) GetByToken(ctx context.Context, token string) (*models.WaitingListEntry, error) {
	return r.getByToken(ctx, token, false)
}

// GetByTokenForUpdate retrieves an entry by its promotion token with a row
// lock, so the token can be consumed atomically in the same transaction.
func (r *WaitingListRepository) GetByTokenForUpdate(ctx context.Context, token string) (*models.WaitingListEntry, error) {
	return r.getByToken(ctx, token, true)
}

func (r *WaitingListRepository) getByToken(ctx context.Context, token string, forUpdate bool) (*models.WaitingListEntry, error) {
	entry, err := r.getWhere(ctx, squirrel.Eq{"promotion_token": token}, forUpdate)
	if err != nil {
		if errors.Is(err, apperrors.ErrWaitingListEntryNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}
	return entry, nil
}

// ListBySlot retrieves a slot's waiting list ordered by position
func (r *WaitingListRepository) ListBySlot(ctx context.Context, slotID int64) ([]models.WaitingListEntry, error) {
	sql, args, err := r.sb.Select(waitingListColumns...).
		From("waiting_list").
		Where(squirrel.Eq{"slot_id": slotID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list waiting list query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing waiting list: %w", err)
	}
	defer rows.Close()

	var entries []models.WaitingListEntry
	for rows.Next() {
		entry, err := scanWaitingListEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning waiting list row: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waiting list rows: %w", err)
	}

	return entries, nil
}

// ListExpiredOffers retrieves entries holding a promotion token whose window has passed
func (r *WaitingListRepository) ListExpiredOffers(ctx context.Context, now time.Time) ([]models.WaitingListEntry, error) {
	sql, args, err := r.sb.Select(waitingListColumns...).
		From("waiting_list").
		Where(squirrel.And{
			squirrel.NotEq{"promotion_token": nil},
			squirrel.Lt{"promotion_expires_at": now},
		}).
		OrderBy("slot_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build expired offers query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing expired offers: %w", err)
	}
	defer rows.Close()

	var entries []models.WaitingListEntry
	for rows.Next() {
		entry, err := scanWaitingListEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning expired offer row: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired offer rows: %w", err)
	}

	return entries, nil
}

// CountBySlot returns the number of entries queued on a slot
func (r *WaitingListRepository) CountBySlot(ctx context.Context, slotID int64) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("waiting_list").
		Where(squirrel.Eq{"slot_id": slotID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count waiting list query: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting waiting list: %w", err)
	}

	return count, nil
}

// ExistsForPresenter reports whether the presenter is queued on any slot
func (r *WaitingListRepository) ExistsForPresenter(ctx context.Context, username string) (bool, error) {
	sql, args, err := r.sb.Select("1").
		From("waiting_list").
		Where(squirrel.Eq{"presenter_username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build waiting list exists query: %w", err)
	}

	var one int
	err = r.db.QueryRow(ctx, sql, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error checking waiting list membership: %w", err)
	}

	return true, nil
}

// MaxPosition returns the highest occupied position on a slot's queue (0 when empty)
func (r *WaitingListRepository) MaxPosition(ctx context.Context, slotID int64) (int, error) {
	sql, args, err := r.sb.Select("COALESCE(MAX(position), 0)").
		From("waiting_list").
		Where(squirrel.Eq{"slot_id": slotID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build max position query: %w", err)
	}

	var max int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&max); err != nil {
		return 0, fmt.Errorf("error retrieving max position: %w", err)
	}

	return max, nil
}

// Insert appends a new entry and returns its generated ID
func (r *WaitingListRepository) Insert(ctx context.Context, e *models.WaitingListEntry) error {
	sql, args, err := r.sb.Insert("waiting_list").
		Columns("slot_id", "presenter_username", "degree", "topic",
			"supervisor_name", "supervisor_email", "position", "added_at").
		Values(e.SlotID, e.PresenterUsername, e.Degree, e.Topic,
			e.SupervisorName, e.SupervisorEmail, e.Position, e.AddedAt).
		Suffix("RETURNING entry_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert waiting list query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&e.ID); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrAlreadyQueued
		}
		logger.Error().Err(err).Int64("slotID", e.SlotID).Str("username", e.PresenterUsername).
			Msg("Error executing insert waiting list query")
		return fmt.Errorf("error inserting waiting list entry: %w", err)
	}

	return nil
}

// Remove deletes an entry and closes the position gap it leaves behind,
// keeping positions dense 1..N. Must run inside the slot-locked transaction.
func (r *WaitingListRepository) Remove(ctx context.Context, entry *models.WaitingListEntry) error {
	sql, args, err := r.sb.Delete("waiting_list").
		Where(squirrel.Eq{"entry_id": entry.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete waiting list query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("entryID", entry.ID).Msg("Error deleting waiting list entry")
		return fmt.Errorf("error deleting waiting list entry: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrWaitingListEntryNotFound
	}

	sql, args, err = r.sb.Update("waiting_list").
		Set("position", squirrel.Expr("position - 1")).
		Where(squirrel.And{
			squirrel.Eq{"slot_id": entry.SlotID},
			squirrel.Gt{"position": entry.Position},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build decrement positions query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Int64("slotID", entry.SlotID).Msg("Error decrementing waiting list positions")
		return fmt.Errorf("error decrementing waiting list positions: %w", err)
	}

	return nil
}

// SetPromotionToken stamps a promotion offer on an entry
func (r *WaitingListRepository) SetPromotionToken(ctx context.Context, entryID int64, token string, offeredAt, expiresAt time.Time) error {
	sql, args, err := r.sb.Update("waiting_list").
		Set("promotion_token", token).
		Set("promotion_offered_at", offeredAt).
		Set("promotion_expires_at", expiresAt).
		Where(squirrel.Eq{"entry_id": entryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set promotion token query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("entryID", entryID).Msg("Error setting promotion token")
		return fmt.Errorf("error setting promotion token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrWaitingListEntryNotFound
	}

	return nil
}

// ClearPromotionToken removes an entry's promotion offer, leaving the entry queued
func (r *WaitingListRepository) ClearPromotionToken(ctx context.Context, entryID int64) error {
	sql, args, err := r.sb.Update("waiting_list").
		Set("promotion_token", nil).
		Set("promotion_offered_at", nil).
		Set("promotion_expires_at", nil).
		Where(squirrel.Eq{"entry_id": entryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build clear promotion token query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("entryID", entryID).Msg("Error clearing promotion token")
		return fmt.Errorf("error clearing promotion token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrWaitingListEntryNotFound
	}

	return nil
}

// RemoveForPresenter deletes the presenter's entry on any slot, re-densifying
// that slot's queue. Used when an approval claims the presenter's seat.
func (r *WaitingListRepository) RemoveForPresenter(ctx context.Context, username string) (*models.WaitingListEntry, error) {
	entry, err := r.getWhere(ctx, squirrel.Eq{"presenter_username": username}, true)
	if err != nil {
		if errors.Is(err, apperrors.ErrWaitingListEntryNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := r.Remove(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}
