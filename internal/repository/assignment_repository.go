package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// AssignmentRepository persists the append-only assignment history.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	GetByID(ctx context.Context, id string) (*domain.Assignment, error)
	// GetCurrentByTicket returns the non-superseded assignment for a
	// ticket, or pgx.ErrNoRows when none exists.
	GetCurrentByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error)
	ListByAgent(ctx context.Context, agentID string, activeOnly bool) ([]domain.Assignment, error)
	// Supersede atomically marks the old assignment REASSIGNED, inserts the
	// replacement, and moves the active-ticket count from the losing agent
	// to the gaining one. Both counter updates happen inside one
	// transaction with server-side increments.
	Supersede(ctx context.Context, oldID string, completedAt time.Time, next *domain.Assignment) error
	// Complete closes the current assignment when its ticket resolves,
	// crediting the agent's completed count.
	Complete(ctx context.Context, id string, completedAt time.Time) error
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

const assignmentColumns = `id, ticket_id, agent_id, assigned_by, assignment_type, previous_agent_id,
               reassignment_reason, notes, status, assigned_at, completed_at`

const insertAssignment = `
        INSERT INTO assignments (ticket_id, agent_id, assigned_by, assignment_type, previous_agent_id,
            reassignment_reason, notes, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, assigned_at`

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	return r.pool.QueryRow(ctx, insertAssignment,
		assignment.TicketID,
		assignment.AgentID,
		assignment.AssignedBy,
		assignment.Type,
		assignment.PreviousAgentID,
		assignment.ReassignmentReason,
		assignment.Notes,
		assignment.Status,
	).Scan(&assignment.ID, &assignment.AssignedAt)
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id=$1`
	var a domain.Assignment
	if err := scanAssignment(r.pool.QueryRow(ctx, query, id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepository) GetCurrentByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
        FROM assignments WHERE ticket_id=$1 AND status=$2 AND completed_at IS NULL
        ORDER BY assigned_at DESC LIMIT 1`
	var a domain.Assignment
	if err := scanAssignment(r.pool.QueryRow(ctx, query, ticketID, domain.AssignmentStatusAssigned), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
        FROM assignments WHERE ticket_id=$1 ORDER BY assigned_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (r *assignmentRepository) ListByAgent(ctx context.Context, agentID string, activeOnly bool) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE agent_id=$1`
	args := []any{agentID}
	if activeOnly {
		query += ` AND status=$2`
		args = append(args, domain.AssignmentStatusAssigned)
	}
	query += ` ORDER BY assigned_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (r *assignmentRepository) Supersede(ctx context.Context, oldID string, completedAt time.Time, next *domain.Assignment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `
        UPDATE assignments SET status=$1, completed_at=$2 WHERE id=$3 AND status=$4`,
		domain.AssignmentStatusReassigned, completedAt, oldID, domain.AssignmentStatusAssigned)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if err := tx.QueryRow(ctx, insertAssignment,
		next.TicketID,
		next.AgentID,
		next.AssignedBy,
		next.Type,
		next.PreviousAgentID,
		next.ReassignmentReason,
		next.Notes,
		next.Status,
	).Scan(&next.ID, &next.AssignedAt); err != nil {
		return err
	}

	if next.PreviousAgentID != nil {
		if _, err := tx.Exec(ctx, `
            UPDATE agent_workloads
            SET active_tickets = GREATEST(active_tickets - 1, 0), updated_at = NOW()
            WHERE agent_id=$1`, *next.PreviousAgentID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
        UPDATE agent_workloads
        SET active_tickets = active_tickets + 1,
            total_assigned = total_assigned + 1,
            last_assigned_at = $2,
            updated_at = NOW()
        WHERE agent_id=$1`, next.AgentID, completedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *assignmentRepository) Complete(ctx context.Context, id string, completedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var agentID string
	if err := tx.QueryRow(ctx, `
        UPDATE assignments SET completed_at=$1 WHERE id=$2 AND completed_at IS NULL
        RETURNING agent_id`, completedAt, id).Scan(&agentID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
        UPDATE agent_workloads
        SET active_tickets = GREATEST(active_tickets - 1, 0),
            completed_tickets = completed_tickets + 1,
            updated_at = NOW()
        WHERE agent_id=$1`, agentID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanAssignment(row pgx.Row, a *domain.Assignment) error {
	return row.Scan(
		&a.ID,
		&a.TicketID,
		&a.AgentID,
		&a.AssignedBy,
		&a.Type,
		&a.PreviousAgentID,
		&a.ReassignmentReason,
		&a.Notes,
		&a.Status,
		&a.AssignedAt,
		&a.CompletedAt,
	)
}

func scanAssignments(rows pgx.Rows) ([]domain.Assignment, error) {
	var result []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := scanAssignment(rows, &a); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
