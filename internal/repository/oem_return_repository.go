package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/returnsdesk/oem-returns/internal/domain"
)

// ErrNoDatabase is returned when no Postgres pool is configured.
var ErrNoDatabase = errors.New("postgres not configured")

const returnColumns = `id::text, ticket_link, order_number, sku, customer_name, priority, om_request,
               status, om_update, last_follow_up, request_date, designated_om_agent, created_at, updated_at`

// ReturnFilter captures table view search parameters.
type ReturnFilter struct {
	Statuses   []string
	Agent      *string
	Unassigned bool
	Priority   *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// ReturnRepository encapsulates OEM return persistence.
type ReturnRepository interface {
	GetByID(ctx context.Context, id string) (*domain.OEMReturn, error)
	List(ctx context.Context, filter ReturnFilter) ([]domain.OEMReturn, int, error)
	ApplyPatch(ctx context.Context, id string, patch domain.Patch) (*domain.OEMReturn, error)
}

type returnRepository struct {
	pool *pgxpool.Pool
}

// NewReturnRepository instantiates repository.
func NewReturnRepository(pool *pgxpool.Pool) ReturnRepository {
	return &returnRepository{pool: pool}
}

func (r *returnRepository) GetByID(ctx context.Context, id string) (*domain.OEMReturn, error) {
	if r.pool == nil {
		return nil, ErrNoDatabase
	}
	query := `SELECT ` + returnColumns + ` FROM oem_returns WHERE id=$1`
	return scanReturn(r.pool.QueryRow(ctx, query, id))
}

func (r *returnRepository) List(ctx context.Context, filter ReturnFilter) ([]domain.OEMReturn, int, error) {
	if r.pool == nil {
		return nil, 0, ErrNoDatabase
	}
	where, args := buildReturnWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM oem_returns WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM oem_returns WHERE %s
             ORDER BY request_date DESC NULLS LAST, id LIMIT %d OFFSET %d`, returnColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.OEMReturn
	for rows.Next() {
		rec, err := scanReturn(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *rec)
	}
	return result, total, rows.Err()
}

func (r *returnRepository) ApplyPatch(ctx context.Context, id string, patch domain.Patch) (*domain.OEMReturn, error) {
	if r.pool == nil {
		return nil, ErrNoDatabase
	}
	query, args, err := buildPatchQuery(id, patch)
	if err != nil {
		return nil, err
	}
	return scanReturn(r.pool.QueryRow(ctx, query, args...))
}

func buildReturnWhere(filter ReturnFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Unassigned {
		clauses = append(clauses, "COALESCE(designated_om_agent, '') = ''")
	} else if filter.Agent != nil {
		args = append(args, *filter.Agent)
		clauses = append(clauses, fmt.Sprintf("designated_om_agent=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(COALESCE(order_number,'')) LIKE %[1]s OR LOWER(COALESCE(sku,'')) LIKE %[1]s OR LOWER(COALESCE(customer_name,'')) LIKE %[1]s OR LOWER(COALESCE(ticket_link,'')) LIKE %[1]s)",
			placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

func buildPatchQuery(id string, patch domain.Patch) (string, []any, error) {
	if patch.IsEmpty() {
		return "", nil, errors.New("empty patch")
	}
	sets := make([]string, 0, len(patch)+1)
	args := make([]any, 0, len(patch)+1)
	for _, field := range patch.Fields() {
		if !field.Valid() {
			return "", nil, fmt.Errorf("field %q is not editable", field)
		}
		args = append(args, patch[field])
		sets = append(sets, fmt.Sprintf("%s=$%d", field, len(args)))
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE oem_returns SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), returnColumns)
	return query, args, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanReturn(row pgx.Row) (*domain.OEMReturn, error) {
	var rec domain.OEMReturn
	if err := row.Scan(
		&rec.ID,
		&rec.TicketLink,
		&rec.OrderNumber,
		&rec.SKU,
		&rec.CustomerName,
		&rec.Priority,
		&rec.OMRequest,
		&rec.Status,
		&rec.OMUpdate,
		&rec.LastFollowUp,
		&rec.RequestDate,
		&rec.DesignatedOMAgent,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
