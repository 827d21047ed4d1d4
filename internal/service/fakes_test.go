package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) UpdateGuarded(_ context.Context, ticket *domain.Ticket, expectedStatus domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok || stored.Status != expectedStatus {
		return pgx.ErrNoRows
	}
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.TicketNumber == number {
			copied := t
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if filter.CreatedBy != nil && t.CreatedByUserID != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && (t.AssignedToUserID == nil || *t.AssignedToUserID != *filter.AssignedTo) {
			continue
		}
		if filter.Unassigned && t.AssignedToUserID != nil {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeWorkloadRepo struct {
	mu        sync.Mutex
	workloads map[string]domain.AgentWorkload
}

func newFakeWorkloadRepo() *fakeWorkloadRepo {
	return &fakeWorkloadRepo{workloads: make(map[string]domain.AgentWorkload)}
}

func (r *fakeWorkloadRepo) Ensure(_ context.Context, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workloads[agentID]; !ok {
		r.workloads[agentID] = domain.AgentWorkload{AgentID: agentID, Status: domain.AgentStatusAvailable}
	}
	return nil
}

func (r *fakeWorkloadRepo) GetByAgent(_ context.Context, agentID string) (*domain.AgentWorkload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workloads[agentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := w
	return &copied, nil
}

func (r *fakeWorkloadRepo) ListByStatus(_ context.Context, status domain.AgentStatus) ([]domain.AgentWorkload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AgentWorkload
	for _, w := range r.workloads {
		if w.Status == status {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func (r *fakeWorkloadRepo) ListAll(_ context.Context) ([]domain.AgentWorkload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AgentWorkload
	for _, w := range r.workloads {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func (r *fakeWorkloadRepo) SetStatus(_ context.Context, agentID string, status domain.AgentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workloads[agentID]
	if !ok {
		return pgx.ErrNoRows
	}
	w.Status = status
	r.workloads[agentID] = w
	return nil
}

func (r *fakeWorkloadRepo) RecordAssigned(_ context.Context, agentID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workloads[agentID]
	if !ok {
		return pgx.ErrNoRows
	}
	w.ActiveTickets++
	w.TotalAssigned++
	assignedAt := at
	w.LastAssignedAt = &assignedAt
	r.workloads[agentID] = w
	return nil
}

func (r *fakeWorkloadRepo) adjust(agentID string, fn func(*domain.AgentWorkload)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workloads[agentID]
	if !ok {
		return
	}
	fn(&w)
	r.workloads[agentID] = w
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments []domain.Assignment
	workloads   *fakeWorkloadRepo
}

func newFakeAssignmentRepo(workloads *fakeWorkloadRepo) *fakeAssignmentRepo {
	return &fakeAssignmentRepo{workloads: workloads}
}

func (r *fakeAssignmentRepo) Create(_ context.Context, assignment *domain.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment.ID = uuid.NewString()
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now()
	}
	r.assignments = append(r.assignments, *assignment)
	return nil
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id string) (*domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.ID == id {
			copied := a
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAssignmentRepo) GetCurrentByTicket(_ context.Context, ticketID string) (*domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current *domain.Assignment
	for i := range r.assignments {
		a := r.assignments[i]
		if a.TicketID != ticketID || a.Status != domain.AssignmentStatusAssigned || a.CompletedAt != nil {
			continue
		}
		if current == nil || a.AssignedAt.After(current.AssignedAt) {
			copied := a
			current = &copied
		}
	}
	if current == nil {
		return nil, pgx.ErrNoRows
	}
	return current, nil
}

func (r *fakeAssignmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Assignment
	for _, a := range r.assignments {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAssignmentRepo) ListByAgent(_ context.Context, agentID string, activeOnly bool) ([]domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Assignment
	for _, a := range r.assignments {
		if a.AgentID != agentID {
			continue
		}
		if activeOnly && a.Status != domain.AssignmentStatusAssigned {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAssignmentRepo) Supersede(_ context.Context, oldID string, completedAt time.Time, next *domain.Assignment) error {
	r.mu.Lock()
	found := false
	for i := range r.assignments {
		if r.assignments[i].ID == oldID && r.assignments[i].Status == domain.AssignmentStatusAssigned {
			r.assignments[i].Status = domain.AssignmentStatusReassigned
			at := completedAt
			r.assignments[i].CompletedAt = &at
			found = true
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return pgx.ErrNoRows
	}
	next.ID = uuid.NewString()
	next.AssignedAt = completedAt
	r.assignments = append(r.assignments, *next)
	r.mu.Unlock()

	if next.PreviousAgentID != nil {
		r.workloads.adjust(*next.PreviousAgentID, func(w *domain.AgentWorkload) {
			if w.ActiveTickets > 0 {
				w.ActiveTickets--
			}
		})
	}
	r.workloads.adjust(next.AgentID, func(w *domain.AgentWorkload) {
		w.ActiveTickets++
		w.TotalAssigned++
		at := completedAt
		w.LastAssignedAt = &at
	})
	return nil
}

func (r *fakeAssignmentRepo) Complete(_ context.Context, id string, completedAt time.Time) error {
	r.mu.Lock()
	var agentID string
	found := false
	for i := range r.assignments {
		if r.assignments[i].ID == id && r.assignments[i].CompletedAt == nil {
			at := completedAt
			r.assignments[i].CompletedAt = &at
			agentID = r.assignments[i].AgentID
			found = true
			break
		}
	}
	r.mu.Unlock()
	if !found {
		return pgx.ErrNoRows
	}
	r.workloads.adjust(agentID, func(w *domain.AgentWorkload) {
		if w.ActiveTickets > 0 {
			w.ActiveTickets--
		}
		w.CompletedTickets++
	})
	return nil
}

type fakeSLARepo struct {
	mu        sync.Mutex
	trackings map[string]domain.SLATracking
}

func newFakeSLARepo() *fakeSLARepo {
	return &fakeSLARepo{trackings: make(map[string]domain.SLATracking)}
}

func (r *fakeSLARepo) Create(_ context.Context, tracking *domain.SLATracking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tracking.ID = uuid.NewString()
	now := time.Now()
	tracking.CreatedAt = now
	tracking.UpdatedAt = now
	r.trackings[tracking.TicketID] = *tracking
	return nil
}

func (r *fakeSLARepo) Update(_ context.Context, tracking *domain.SLATracking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trackings[tracking.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	tracking.UpdatedAt = time.Now()
	r.trackings[tracking.TicketID] = *tracking
	return nil
}

func (r *fakeSLARepo) GetByTicket(_ context.Context, ticketID string) (*domain.SLATracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackings[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := t
	return &copied, nil
}

func (r *fakeSLARepo) ListActive(_ context.Context) ([]domain.SLATracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SLATracking
	for _, t := range r.trackings {
		if t.Status != domain.SLAStatusResolved {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResolutionDueAt.Before(out[j].ResolutionDueAt) })
	return out, nil
}

func (r *fakeSLARepo) ListByStatus(_ context.Context, status domain.SLAStatus) ([]domain.SLATracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SLATracking
	for _, t := range r.trackings {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeSLARepo) DeleteByTicket(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackings, ticketID)
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := u
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) TouchLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	loginAt := at
	u.LastLoginAt = &loginAt
	r.users[id] = u
	return nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeQueue struct {
	mu     sync.Mutex
	pushed []string
}

func (q *fakeQueue) PushEscalation(_ context.Context, ticketID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushed = append([]string{ticketID}, q.pushed...)
	return nil
}

func (q *fakeQueue) PendingEscalations(_ context.Context, limit int64) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if limit <= 0 || limit > int64(len(q.pushed)) {
		limit = int64(len(q.pushed))
	}
	return append([]string{}, q.pushed[:limit]...), nil
}

func (q *fakeQueue) AckEscalation(_ context.Context, ticketID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, id := range q.pushed {
		if id != ticketID {
			out = append(out, id)
		}
	}
	q.pushed = out
	return nil
}
