package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

// SLAMonitor periodically reclassifies active SLA trackings against
// wall-clock time, marking breaches and optionally escalating breached
// tickets to the manager queue.
type SLAMonitor struct {
	slas        *service.SLAService
	escalations *service.EscalationService
	tickets     repository.TicketRepository
	cfg         config.SLAConfig
	logger      *zap.Logger
}

// NewSLAMonitor constructs the monitor.
func NewSLAMonitor(slas *service.SLAService, escalations *service.EscalationService, tickets repository.TicketRepository, cfg config.SLAConfig, logger *zap.Logger) *SLAMonitor {
	return &SLAMonitor{
		slas:        slas,
		escalations: escalations,
		tickets:     tickets,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start runs the monitor loop until the context is cancelled.
func (m *SLAMonitor) Start(ctx context.Context) {
	interval := m.cfg.MonitorInterval()
	m.logger.Info("sla monitor started",
		zap.Duration("interval", interval),
		zap.Bool("auto_escalate", m.cfg.AutoEscalate))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("sla monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *SLAMonitor) tick(ctx context.Context) {
	breached, err := m.slas.RefreshAll(ctx, time.Now())
	if err != nil {
		m.logger.Error("sla refresh failed", zap.Error(err))
		return
	}
	if len(breached) == 0 {
		return
	}
	m.logger.Warn("sla breaches detected", zap.Int("count", len(breached)))
	if !m.cfg.AutoEscalate {
		return
	}
	for _, tracking := range breached {
		m.autoEscalate(ctx, tracking)
	}
}

func (m *SLAMonitor) autoEscalate(ctx context.Context, tracking domain.SLATracking) {
	ticket, err := m.tickets.GetByID(ctx, tracking.TicketID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			m.logger.Error("auto-escalation lookup failed",
				zap.String("ticket_id", tracking.TicketID), zap.Error(err))
		}
		return
	}
	if ticket.Status != domain.TicketStatusAssigned && ticket.Status != domain.TicketStatusInProgress {
		return
	}

	reason := fmt.Sprintf("Automatic escalation: resolution SLA breached for %s priority ticket", ticket.Priority)
	if _, err := m.escalations.Escalate(ctx, service.SystemActor, ticket.ID, reason, domain.EscalationTypeManager); err != nil {
		m.logger.Warn("auto-escalation rejected",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	m.logger.Info("ticket auto-escalated",
		zap.String("ticket_id", ticket.ID),
		zap.String("priority", string(ticket.Priority)))
}
