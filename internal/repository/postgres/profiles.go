package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// rowQuerier is the subset of pgxpool.Pool the repository needs. Keeping
// it narrow lets tests substitute a mock pool.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProfileRepository answers profile-existence queries against PostgreSQL.
type ProfileRepository struct {
	db      rowQuerier
	builder squirrel.StatementBuilderType
}

// NewProfileRepository wires a PostgreSQL-backed profile repository.
func NewProfileRepository(db rowQuerier) *ProfileRepository {
	return &ProfileRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Exists reports whether a profile row exists for the user. Only
// existence matters to the bootstrap flow; no columns are read.
func (r *ProfileRepository) Exists(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}

	query, args, err := r.builder.
		Select("1").
		From("profiles").
		Where(squirrel.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build profile existence query: %w", err)
	}

	var one int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query profile existence: %w", err)
	}

	return true, nil
}
