package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Window holds the response and resolution deadlines for one priority.
type Window struct {
	Response   time.Duration
	Resolution time.Duration
}

// Policy maps priorities to deadline windows and classifies trackings
// against wall-clock time. The table is configuration, not code; Default
// provides the shipped values.
type Policy struct {
	Windows map[domain.TicketPriority]Window
	// WarningFraction of the resolution window remaining below which a
	// tracking is AT_RISK.
	WarningFraction float64
}

// Default returns the stock policy table. Windows shrink monotonically with
// severity.
func Default() Policy {
	return Policy{
		Windows: map[domain.TicketPriority]Window{
			domain.TicketPriorityCritical: {Response: 15 * time.Minute, Resolution: 4 * time.Hour},
			domain.TicketPriorityHigh:     {Response: 30 * time.Minute, Resolution: 8 * time.Hour},
			domain.TicketPriorityMedium:   {Response: time.Hour, Resolution: 24 * time.Hour},
			domain.TicketPriorityLow:      {Response: 4 * time.Hour, Resolution: 72 * time.Hour},
		},
		WarningFraction: 0.25,
	}
}

// Validate checks the table is complete and monotonic in severity.
func (p Policy) Validate() error {
	order := []domain.TicketPriority{
		domain.TicketPriorityCritical,
		domain.TicketPriorityHigh,
		domain.TicketPriorityMedium,
		domain.TicketPriorityLow,
	}
	var prev *Window
	for _, priority := range order {
		w, ok := p.Windows[priority]
		if !ok {
			return fmt.Errorf("sla policy: missing window for %s", priority)
		}
		if w.Response <= 0 || w.Resolution <= 0 {
			return fmt.Errorf("sla policy: non-positive window for %s", priority)
		}
		if prev != nil && (w.Response < prev.Response || w.Resolution < prev.Resolution) {
			return fmt.Errorf("sla policy: window for %s shorter than a more severe priority", priority)
		}
		prev = &w
	}
	if p.WarningFraction <= 0 || p.WarningFraction >= 1 {
		return fmt.Errorf("sla policy: warning fraction %v out of (0,1)", p.WarningFraction)
	}
	return nil
}

// Deadlines computes the response and resolution due times for a ticket
// created at createdAt. Unknown priorities fall back to the MEDIUM window.
func (p Policy) Deadlines(priority domain.TicketPriority, createdAt time.Time) (responseDue, resolutionDue time.Time) {
	w, ok := p.Windows[priority]
	if !ok {
		w = p.Windows[domain.TicketPriorityMedium]
	}
	return createdAt.Add(w.Response), createdAt.Add(w.Resolution)
}

// Classify derives the single SLA status every dashboard sorts and colors
// by. A frozen (RESOLVED) tracking never re-enters breach classification,
// and classification is monotonic: once now passes ResolutionDueAt an
// unresolved tracking stays BREACHED.
func (p Policy) Classify(now time.Time, tracking domain.SLATracking) domain.SLAStatus {
	if tracking.Frozen() {
		return domain.SLAStatusResolved
	}
	if tracking.ResolutionBreached || now.After(tracking.ResolutionDueAt) {
		return domain.SLAStatusBreached
	}
	total := tracking.ResolutionDueAt.Sub(tracking.CreatedAt)
	remaining := tracking.ResolutionDueAt.Sub(now)
	if total > 0 && float64(remaining) < float64(total)*p.WarningFraction {
		return domain.SLAStatusAtRisk
	}
	return domain.SLAStatusOnTime
}

// Remaining returns the time left until resolution is due; negative once
// breached.
func Remaining(now time.Time, tracking domain.SLATracking) time.Duration {
	return tracking.ResolutionDueAt.Sub(now)
}
