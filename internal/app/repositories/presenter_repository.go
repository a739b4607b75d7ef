package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
	"github.com/semscan/semscan-api/internal/pkg/dberrors"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// PresenterRepository handles presenter database operations
type PresenterRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

// NewPresenterRepository creates a new PresenterRepository
func NewPresenterRepository(db Querier) *PresenterRepository {
	return &PresenterRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *PresenterRepository) WithTx(tx pgx.Tx) *PresenterRepository {
	return &PresenterRepository{db: tx, sb: r.sb}
}

// GetByUsername retrieves a presenter by username
func (r *PresenterRepository) GetByUsername(ctx context.Context, username string) (*models.Presenter, error) {
	sql, args, err := r.sb.Select("username", "first_name", "last_name", "email", "degree").
		From("presenters").
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get presenter query: %w", err)
	}

	var p models.Presenter
	err = r.db.QueryRow(ctx, sql, args...).Scan(&p.Username, &p.FirstName, &p.LastName, &p.Email, &p.Degree)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPresenterNotFound
		}
		logger.Error().Err(err).Str("username", username).Msg("Error scanning presenter row")
		return nil, fmt.Errorf("error retrieving presenter: %w", err)
	}

	return &p, nil
}

// Create inserts a new presenter
func (r *PresenterRepository) Create(ctx context.Context, p *models.Presenter) error {
	sql, args, err := r.sb.Insert("presenters").
		Columns("username", "first_name", "last_name", "email", "degree").
		Values(p.Username, p.FirstName, p.LastName, p.Email, p.Degree).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create presenter query: %w", err)
	}

	_, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "presenters_pkey") {
			return apperrors.NewConflictError("presenter " + p.Username + " already exists")
		}
		logger.Error().Err(err).Str("username", p.Username).Msg("Error executing create presenter query")
		return fmt.Errorf("error creating presenter: %w", err)
	}

	return nil
}
