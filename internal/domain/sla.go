package domain

import "time"

// SLAStatus is the single classification all dashboards derive from.
type SLAStatus string

const (
	SLAStatusOnTime   SLAStatus = "ON_TIME"
	SLAStatusAtRisk   SLAStatus = "AT_RISK"
	SLAStatusBreached SLAStatus = "BREACHED"
	SLAStatusResolved SLAStatus = "RESOLVED"
)

// SLATracking records the deadline contract for one ticket. Created together
// with the ticket, recomputed from wall-clock time against the two deadlines,
// and frozen once the ticket resolves.
type SLATracking struct {
	ID                 string
	TicketID           string
	Priority           TicketPriority
	Category           TicketCategory
	ResponseDueAt      time.Time
	ResolutionDueAt    time.Time
	ResponseBreached   bool
	ResolutionBreached bool
	Status             SLAStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Frozen reports whether the tracking stopped classifying.
func (t *SLATracking) Frozen() bool {
	return t.Status == SLAStatusResolved
}
