package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// WorkloadRepository maintains the per-agent workload aggregate. Counter
// mutations are server-side increments; callers re-fetch after mutating
// instead of trusting a locally adjusted copy.
type WorkloadRepository interface {
	Ensure(ctx context.Context, agentID string) error
	GetByAgent(ctx context.Context, agentID string) (*domain.AgentWorkload, error)
	ListByStatus(ctx context.Context, status domain.AgentStatus) ([]domain.AgentWorkload, error)
	ListAll(ctx context.Context) ([]domain.AgentWorkload, error)
	SetStatus(ctx context.Context, agentID string, status domain.AgentStatus) error
	// RecordAssigned bumps active and total counters and stamps
	// last_assigned_at in one statement.
	RecordAssigned(ctx context.Context, agentID string, at time.Time) error
}

type workloadRepository struct {
	pool *pgxpool.Pool
}

// NewWorkloadRepository instantiates the repository.
func NewWorkloadRepository(pool *pgxpool.Pool) WorkloadRepository {
	return &workloadRepository{pool: pool}
}

const workloadColumns = `agent_id, active_tickets, total_assigned, completed_tickets, status, last_assigned_at, updated_at`

func (r *workloadRepository) Ensure(ctx context.Context, agentID string) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO agent_workloads (agent_id, status)
        VALUES ($1, $2)
        ON CONFLICT (agent_id) DO NOTHING`, agentID, domain.AgentStatusAvailable)
	return err
}

func (r *workloadRepository) GetByAgent(ctx context.Context, agentID string) (*domain.AgentWorkload, error) {
	query := `SELECT ` + workloadColumns + ` FROM agent_workloads WHERE agent_id=$1`
	var w domain.AgentWorkload
	if err := scanWorkload(r.pool.QueryRow(ctx, query, agentID), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workloadRepository) ListByStatus(ctx context.Context, status domain.AgentStatus) ([]domain.AgentWorkload, error) {
	query := `SELECT ` + workloadColumns + ` FROM agent_workloads WHERE status=$1 ORDER BY agent_id`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkloads(rows)
}

func (r *workloadRepository) ListAll(ctx context.Context) ([]domain.AgentWorkload, error) {
	query := `SELECT ` + workloadColumns + ` FROM agent_workloads ORDER BY agent_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkloads(rows)
}

func (r *workloadRepository) SetStatus(ctx context.Context, agentID string, status domain.AgentStatus) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE agent_workloads SET status=$1, updated_at=NOW() WHERE agent_id=$2`, status, agentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workloadRepository) RecordAssigned(ctx context.Context, agentID string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE agent_workloads
        SET active_tickets = active_tickets + 1,
            total_assigned = total_assigned + 1,
            last_assigned_at = $2,
            updated_at = NOW()
        WHERE agent_id=$1`, agentID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanWorkload(row pgx.Row, w *domain.AgentWorkload) error {
	return row.Scan(
		&w.AgentID,
		&w.ActiveTickets,
		&w.TotalAssigned,
		&w.CompletedTickets,
		&w.Status,
		&w.LastAssignedAt,
		&w.UpdatedAt,
	)
}

func scanWorkloads(rows pgx.Rows) ([]domain.AgentWorkload, error) {
	var result []domain.AgentWorkload
	for rows.Next() {
		var w domain.AgentWorkload
		if err := scanWorkload(rows, &w); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
