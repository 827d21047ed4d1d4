package sla

import (
	"time"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
)

// FromConfig builds a policy from the environment-driven table, falling back
// to Default when the configured table is invalid.
func FromConfig(cfg config.SLAConfig) Policy {
	policy := Policy{
		Windows: map[domain.TicketPriority]Window{
			domain.TicketPriorityCritical: minutes(cfg.CriticalResponseMin, cfg.CriticalResolutionMin),
			domain.TicketPriorityHigh:     minutes(cfg.HighResponseMin, cfg.HighResolutionMin),
			domain.TicketPriorityMedium:   minutes(cfg.MediumResponseMin, cfg.MediumResolutionMin),
			domain.TicketPriorityLow:      minutes(cfg.LowResponseMin, cfg.LowResolutionMin),
		},
		WarningFraction: cfg.WarningFraction,
	}
	if err := policy.Validate(); err != nil {
		return Default()
	}
	return policy
}

func minutes(response, resolution int) Window {
	return Window{
		Response:   time.Duration(response) * time.Minute,
		Resolution: time.Duration(resolution) * time.Minute,
	}
}
