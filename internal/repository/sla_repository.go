package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SLARepository persists per-ticket SLA tracking records.
type SLARepository interface {
	Create(ctx context.Context, tracking *domain.SLATracking) error
	Update(ctx context.Context, tracking *domain.SLATracking) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.SLATracking, error)
	// ListActive returns trackings that have not been frozen at RESOLVED.
	ListActive(ctx context.Context) ([]domain.SLATracking, error)
	ListByStatus(ctx context.Context, status domain.SLAStatus) ([]domain.SLATracking, error)
	DeleteByTicket(ctx context.Context, ticketID string) error
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository instantiates the repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

const slaColumns = `id, ticket_id, priority, category, response_due_at, resolution_due_at,
               response_breached, resolution_breached, status, created_at, updated_at`

func (r *slaRepository) Create(ctx context.Context, tracking *domain.SLATracking) error {
	const query = `
        INSERT INTO sla_trackings (ticket_id, priority, category, response_due_at, resolution_due_at,
            response_breached, resolution_breached, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		tracking.TicketID,
		tracking.Priority,
		tracking.Category,
		tracking.ResponseDueAt,
		tracking.ResolutionDueAt,
		tracking.ResponseBreached,
		tracking.ResolutionBreached,
		tracking.Status,
	).Scan(&tracking.ID, &tracking.CreatedAt, &tracking.UpdatedAt)
}

func (r *slaRepository) Update(ctx context.Context, tracking *domain.SLATracking) error {
	const query = `
        UPDATE sla_trackings
        SET priority=$1, category=$2, response_due_at=$3, resolution_due_at=$4,
            response_breached=$5, resolution_breached=$6, status=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		tracking.Priority,
		tracking.Category,
		tracking.ResponseDueAt,
		tracking.ResolutionDueAt,
		tracking.ResponseBreached,
		tracking.ResolutionBreached,
		tracking.Status,
		tracking.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.SLATracking, error) {
	query := `SELECT ` + slaColumns + ` FROM sla_trackings WHERE ticket_id=$1`
	var t domain.SLATracking
	if err := scanTracking(r.pool.QueryRow(ctx, query, ticketID), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *slaRepository) ListActive(ctx context.Context) ([]domain.SLATracking, error) {
	query := `SELECT ` + slaColumns + ` FROM sla_trackings WHERE status <> $1 ORDER BY resolution_due_at`
	rows, err := r.pool.Query(ctx, query, domain.SLAStatusResolved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackings(rows)
}

func (r *slaRepository) ListByStatus(ctx context.Context, status domain.SLAStatus) ([]domain.SLATracking, error) {
	query := `SELECT ` + slaColumns + ` FROM sla_trackings WHERE status=$1 ORDER BY resolution_due_at`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackings(rows)
}

func (r *slaRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sla_trackings WHERE ticket_id=$1`, ticketID)
	return err
}

func scanTracking(row pgx.Row, t *domain.SLATracking) error {
	return row.Scan(
		&t.ID,
		&t.TicketID,
		&t.Priority,
		&t.Category,
		&t.ResponseDueAt,
		&t.ResolutionDueAt,
		&t.ResponseBreached,
		&t.ResolutionBreached,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

func scanTrackings(rows pgx.Rows) ([]domain.SLATracking, error) {
	var result []domain.SLATracking
	for rows.Next() {
		var t domain.SLATracking
		if err := scanTracking(rows, &t); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
