package domain

import "time"

// AssignmentStatus tracks the lifecycle of an assignment record.
type AssignmentStatus string

const (
	AssignmentStatusNotAssigned AssignmentStatus = "NOT_ASSIGNED"
	AssignmentStatusAssigned    AssignmentStatus = "ASSIGNED"
	AssignmentStatusReassigned  AssignmentStatus = "REASSIGNED"
)

// AssignmentType distinguishes workload-based from manual assignment.
type AssignmentType string

const (
	AssignmentTypeAuto   AssignmentType = "AUTO"
	AssignmentTypeManual AssignmentType = "MANUAL"
)

// Assignment binds a ticket to a responsible agent. Records are append-only:
// reassignment supersedes the current record (status REASSIGNED, CompletedAt
// set) and creates a new one referencing PreviousAgentID, keeping the full
// audit history.
type Assignment struct {
	ID                 string
	TicketID           string
	AgentID            string
	AssignedBy         string
	Type               AssignmentType
	PreviousAgentID    *string
	ReassignmentReason *string
	Notes              string
	Status             AssignmentStatus
	AssignedAt         time.Time
	CompletedAt        *time.Time
}

// AgentStatus describes an agent's availability for auto-assignment.
type AgentStatus string

const (
	AgentStatusAvailable AgentStatus = "AVAILABLE"
	AgentStatusBusy      AgentStatus = "BUSY"
	AgentStatusOffline   AgentStatus = "OFFLINE"
)

// ValidAgentStatus reports whether s is a known agent status.
func ValidAgentStatus(s AgentStatus) bool {
	switch s {
	case AgentStatusAvailable, AgentStatusBusy, AgentStatusOffline:
		return true
	}
	return false
}

// AgentWorkload is a per-agent aggregate derived from assignments. Counters
// are maintained with server-side atomic increments and re-read after every
// mutation; the service layer never treats a locally adjusted copy as ground
// truth.
type AgentWorkload struct {
	AgentID          string
	ActiveTickets    int
	TotalAssigned    int
	CompletedTickets int
	Status           AgentStatus
	LastAssignedAt   *time.Time
	UpdatedAt        time.Time
}
