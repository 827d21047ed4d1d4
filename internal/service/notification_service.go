package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
)

// NotificationService fans domain events out to notification channels. The
// email and webhook channels are logged stubs wired through configuration;
// the real work it does is keeping the manager escalation queue honest by
// acknowledging tickets that leave ESCALATED.
type NotificationService struct {
	queue  EscalationQueue
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(queue EscalationQueue, cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{queue: queue, cfg: cfg, logger: logger}
}

// RegisterHandlers subscribes the service to every event type it reacts to.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.onTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.onStatusChanged)
	dispatcher.Subscribe(events.EventTicketAssigned, s.onAssigned)
	dispatcher.Subscribe(events.EventTicketReassigned, s.onReassigned)
	dispatcher.Subscribe(events.EventTicketEscalated, s.onEscalated)
	dispatcher.Subscribe(events.EventSLABreached, s.onSLABreached)
}

func (s *NotificationService) onTicketCreated(ctx context.Context, event events.Event) error {
	s.notify(ctx, event, "ticket created")
	return nil
}

func (s *NotificationService) onStatusChanged(ctx context.Context, event events.Event) error {
	s.notify(ctx, event, "ticket status changed")
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	// A manager acting on an escalated ticket clears it from the pending
	// queue.
	if payload.OldStatus == domain.TicketStatusEscalated && s.queue != nil {
		if err := s.queue.AckEscalation(ctx, event.TicketID); err != nil {
			s.logger.Warn("failed to ack escalation",
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
	return nil
}

func (s *NotificationService) onAssigned(ctx context.Context, event events.Event) error {
	s.notify(ctx, event, "ticket assigned")
	return nil
}

func (s *NotificationService) onReassigned(ctx context.Context, event events.Event) error {
	s.notify(ctx, event, "ticket reassigned")
	return nil
}

func (s *NotificationService) onEscalated(ctx context.Context, event events.Event) error {
	s.notify(ctx, event, "ticket escalated")
	return nil
}

func (s *NotificationService) onSLABreached(ctx context.Context, event events.Event) error {
	s.notify(ctx, event, "sla breached")
	return nil
}

func (s *NotificationService) notify(_ context.Context, event events.Event, summary string) {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.UserID),
	}
	if s.cfg.WebhookURL != "" {
		fields = append(fields, zap.String("webhook_url", s.cfg.WebhookURL))
	}
	s.logger.Info("notification: "+summary, fields...)
}
