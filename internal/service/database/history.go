package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kapu/roblox-profile-go/internal/constants"
	"github.com/kapu/roblox-profile-go/internal/domain"
	"go.uber.org/zap"
)

type HistoryRepository struct {
	postgres *PostgresService
	db       *sql.DB
	logger   *zap.Logger
}

func NewHistoryRepository(postgres *PostgresService, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		postgres: postgres,
		db:       postgres.GetDB(),
		logger:   logger,
	}
}

// Ping checks the underlying connection pool.
func (r *HistoryRepository) Ping(ctx context.Context) error {
	return r.postgres.Ping(ctx)
}

// Record stores a successful lookup.
func (r *HistoryRepository) Record(ctx context.Context, query string, user *domain.User) error {
	stmt := `
		INSERT INTO lookup_history (query, user_id, username, display_name)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, stmt, query, user.ID, user.Name, user.DisplayName); err != nil {
		return fmt.Errorf("failed to record lookup: %w", err)
	}
	return nil
}

// Recent returns the newest lookups first. limit is clamped to
// [1, HistoryConfig.MaxLimit].
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]*domain.LookupRecord, error) {
	limit = ClampLimit(limit)

	query := `
		SELECT id, query, user_id, username, display_name, looked_up_at
		FROM lookup_history
		ORDER BY looked_up_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup history: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.LookupRecord, 0, limit)
	for rows.Next() {
		var rec domain.LookupRecord
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.UserID, &rec.Username, &rec.DisplayName, &rec.LookedUpAt); err != nil {
			r.logger.Warn("Failed to scan history row", zap.Error(err))
			continue
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lookup history: %w", err)
	}
	return records, nil
}

func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return constants.HistoryConfig.DefaultLimit
	case limit > constants.HistoryConfig.MaxLimit:
		return constants.HistoryConfig.MaxLimit
	}
	return limit
}
