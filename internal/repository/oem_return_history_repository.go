package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/returnsdesk/oem-returns/internal/domain"
)

// HistoryRepository stores audit entries.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.OEMReturnHistory) error
	ListByReturn(ctx context.Context, returnID string, limit, offset int) ([]domain.OEMReturnHistory, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.OEMReturnHistory) error {
	if r.pool == nil {
		return ErrNoDatabase
	}
	const query = `
        INSERT INTO oem_return_history (return_id, field, old_value, new_value, changed_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id::text, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ReturnID,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.ChangedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *historyRepository) ListByReturn(ctx context.Context, returnID string, limit, offset int) ([]domain.OEMReturnHistory, error) {
	if r.pool == nil {
		return nil, ErrNoDatabase
	}
	limit, offset = normalizePage(limit, offset)
	const query = `
        SELECT id::text, return_id::text, field, old_value, new_value, changed_by, created_at
        FROM oem_return_history WHERE return_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, returnID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OEMReturnHistory
	for rows.Next() {
		var entry domain.OEMReturnHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.ReturnID,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.ChangedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
