// Package views computes per-role derived views over already-fetched ticket
// collections. Every function is deterministic and side-effect free: inputs
// are never mutated and no I/O happens here, so dashboards are testable
// without a backend.
package views

import (
	"sort"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SortDirection orders date sorts.
type SortDirection string

const (
	SortNewestFirst SortDirection = "NEWEST_FIRST"
	SortOldestFirst SortDirection = "OLDEST_FIRST"
)

// FilterByStatus returns the tickets matching any of the given statuses.
// An empty status set returns a copy of the input.
func FilterByStatus(tickets []domain.Ticket, statuses ...domain.TicketStatus) []domain.Ticket {
	if len(statuses) == 0 {
		return append([]domain.Ticket(nil), tickets...)
	}
	wanted := make(map[domain.TicketStatus]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if _, ok := wanted[t.Status]; ok {
			out = append(out, t)
		}
	}
	return out
}

// FilterByRole narrows a collection to what the actor may see: end-users
// their own tickets, agents their assignments, managers and admins
// everything.
func FilterByRole(tickets []domain.Ticket, role domain.UserRole, userID string) []domain.Ticket {
	switch role {
	case domain.RoleManager, domain.RoleAdmin:
		return append([]domain.Ticket(nil), tickets...)
	case domain.RoleAgent:
		out := make([]domain.Ticket, 0, len(tickets))
		for _, t := range tickets {
			if t.AssignedToUserID != nil && *t.AssignedToUserID == userID {
				out = append(out, t)
			}
		}
		return out
	case domain.RoleEndUser:
		out := make([]domain.Ticket, 0, len(tickets))
		for _, t := range tickets {
			if t.CreatedByUserID == userID {
				out = append(out, t)
			}
		}
		return out
	default:
		return []domain.Ticket{}
	}
}

// SortByPriority orders CRITICAL, HIGH, MEDIUM, LOW with unknown priorities
// last, breaking ties by CreatedAt descending. The sort is stable, so
// re-sorting an already-sorted slice yields an identical order.
func SortByPriority(tickets []domain.Ticket) []domain.Ticket {
	out := append([]domain.Ticket(nil), tickets...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := domain.PriorityRank(out[i].Priority), domain.PriorityRank(out[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SortByDate orders tickets by creation time in the given direction.
func SortByDate(tickets []domain.Ticket, direction SortDirection) []domain.Ticket {
	out := append([]domain.Ticket(nil), tickets...)
	sort.SliceStable(out, func(i, j int) bool {
		if direction == SortOldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// UnassignedQueue returns tickets awaiting an agent, most severe first.
// OPEN and REOPENED tickets never carry an assignee.
func UnassignedQueue(tickets []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.Status == domain.TicketStatusOpen || t.Status == domain.TicketStatusReopened {
			out = append(out, t)
		}
	}
	return SortByPriority(out)
}

// Counts aggregates per-status and per-priority totals for dashboards.
type Counts struct {
	Total      int
	ByStatus   map[domain.TicketStatus]int
	ByPriority map[domain.TicketPriority]int
	Unassigned int
	Escalated  int
}

// ComputeCounts tallies a collection into dashboard counters.
func ComputeCounts(tickets []domain.Ticket) Counts {
	counts := Counts{
		Total:      len(tickets),
		ByStatus:   make(map[domain.TicketStatus]int),
		ByPriority: make(map[domain.TicketPriority]int),
	}
	for _, t := range tickets {
		counts.ByStatus[t.Status]++
		counts.ByPriority[t.Priority]++
		if t.Status == domain.TicketStatusOpen || t.Status == domain.TicketStatusReopened {
			counts.Unassigned++
		}
		if t.Status == domain.TicketStatusEscalated {
			counts.Escalated++
		}
	}
	return counts
}

// Search filters tickets whose number, title or description contains the
// term, case-insensitively. Blank terms match everything.
func Search(tickets []domain.Ticket, term string) []domain.Ticket {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return append([]domain.Ticket(nil), tickets...)
	}
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if strings.Contains(strings.ToLower(t.TicketNumber), term) ||
			strings.Contains(strings.ToLower(t.Title), term) ||
			strings.Contains(strings.ToLower(t.Description), term) {
			out = append(out, t)
		}
	}
	return out
}
