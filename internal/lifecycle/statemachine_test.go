package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

func TestListed(t *testing.T) {
	allowed := []struct {
		from, to domain.TicketStatus
	}{
		{domain.TicketStatusOpen, domain.TicketStatusAssigned},
		{domain.TicketStatusAssigned, domain.TicketStatusInProgress},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved},
		{domain.TicketStatusInProgress, domain.TicketStatusEscalated},
		{domain.TicketStatusResolved, domain.TicketStatusClosed},
		{domain.TicketStatusResolved, domain.TicketStatusReopened},
		{domain.TicketStatusClosed, domain.TicketStatusReopened},
		{domain.TicketStatusReopened, domain.TicketStatusInProgress},
		{domain.TicketStatusEscalated, domain.TicketStatusInProgress},
		{domain.TicketStatusEscalated, domain.TicketStatusResolved},
	}
	listedPairs := make(map[[2]domain.TicketStatus]bool, len(allowed))
	for _, pair := range allowed {
		assert.True(t, Listed(pair.from, pair.to), "%s -> %s should be listed", pair.from, pair.to)
		listedPairs[[2]domain.TicketStatus{pair.from, pair.to}] = true
	}

	// Everything not in the table is rejected, reverse edges included.
	statuses := []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusAssigned,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusReopened,
		domain.TicketStatusEscalated,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if listedPairs[[2]domain.TicketStatus{from, to}] {
				continue
			}
			assert.False(t, Listed(from, to), "%s -> %s should not be listed", from, to)
		}
	}
}

func TestCanTransition(t *testing.T) {
	t.Run("staff roles may invoke any listed transition", func(t *testing.T) {
		for _, role := range []domain.UserRole{domain.RoleAgent, domain.RoleManager, domain.RoleAdmin} {
			assert.True(t, CanTransition(domain.TicketStatusInProgress, domain.TicketStatusResolved, role))
			assert.True(t, CanTransition(domain.TicketStatusResolved, domain.TicketStatusReopened, role))
		}
	})

	t.Run("end users may only close resolved tickets", func(t *testing.T) {
		assert.True(t, CanTransition(domain.TicketStatusResolved, domain.TicketStatusClosed, domain.RoleEndUser))
		assert.False(t, CanTransition(domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.RoleEndUser))
		assert.False(t, CanTransition(domain.TicketStatusResolved, domain.TicketStatusReopened, domain.RoleEndUser))
		assert.False(t, CanTransition(domain.TicketStatusClosed, domain.TicketStatusReopened, domain.RoleEndUser))
	})

	t.Run("unlisted transitions are denied regardless of role", func(t *testing.T) {
		assert.False(t, CanTransition(domain.TicketStatusOpen, domain.TicketStatusResolved, domain.RoleAdmin))
	})
}

func TestApplyTransition(t *testing.T) {
	now := time.Now()
	agentID := "agent-1"

	t.Run("unlisted transition fails", func(t *testing.T) {
		ticket := domain.Ticket{Status: domain.TicketStatusOpen}
		_, err := ApplyTransition(ticket, domain.TicketStatusResolved, domain.RoleManager, "", now)
		assert.True(t, apperrors.HasCode(err, "INVALID_TRANSITION"))
	})

	t.Run("role gate fails before side effects", func(t *testing.T) {
		ticket := domain.Ticket{Status: domain.TicketStatusInProgress, AssignedToUserID: &agentID}
		_, err := ApplyTransition(ticket, domain.TicketStatusResolved, domain.RoleEndUser, "", now)
		assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))
	})

	t.Run("assignee required for work states", func(t *testing.T) {
		for _, target := range []domain.TicketStatus{domain.TicketStatusInProgress} {
			ticket := domain.Ticket{Status: domain.TicketStatusAssigned}
			_, err := ApplyTransition(ticket, target, domain.RoleAgent, "", now)
			assert.True(t, apperrors.HasCode(err, "INVALID_TRANSITION"))
		}
		ticket := domain.Ticket{Status: domain.TicketStatusOpen}
		_, err := ApplyTransition(ticket, domain.TicketStatusAssigned, domain.RoleManager, "", now)
		assert.True(t, apperrors.HasCode(err, "INVALID_TRANSITION"))
	})

	t.Run("resolve stamps resolved at", func(t *testing.T) {
		ticket := domain.Ticket{Status: domain.TicketStatusInProgress, AssignedToUserID: &agentID}
		updated, err := ApplyTransition(ticket, domain.TicketStatusResolved, domain.RoleAgent, "done", now)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusResolved, updated.Status)
		require.NotNil(t, updated.ResolvedAt)
		assert.Equal(t, now, *updated.ResolvedAt)
		assert.Equal(t, now, updated.UpdatedAt)
	})

	t.Run("assign stamps assigned at once", func(t *testing.T) {
		earlier := now.Add(-time.Hour)
		ticket := domain.Ticket{
			Status:           domain.TicketStatusOpen,
			AssignedToUserID: &agentID,
			AssignedAt:       &earlier,
		}
		updated, err := ApplyTransition(ticket, domain.TicketStatusAssigned, domain.RoleManager, "", now)
		require.NoError(t, err)
		assert.Equal(t, earlier, *updated.AssignedAt)
	})

	t.Run("reopen clears assignee and escalation metadata", func(t *testing.T) {
		resolvedAt := now.Add(-time.Hour)
		escType := domain.EscalationTypeManager
		reason := "went nowhere for two days straight"
		ticket := domain.Ticket{
			Status:           domain.TicketStatusResolved,
			AssignedToUserID: &agentID,
			AssignedAt:       &resolvedAt,
			ResolvedAt:       &resolvedAt,
			EscalatedBy:      &agentID,
			EscalationType:   &escType,
			EscalatedAt:      &resolvedAt,
			EscalationReason: &reason,
		}
		updated, err := ApplyTransition(ticket, domain.TicketStatusReopened, domain.RoleManager, "still broken", now)
		require.NoError(t, err)
		assert.Nil(t, updated.AssignedToUserID)
		assert.Nil(t, updated.AssignedAt)
		assert.Nil(t, updated.ResolvedAt)
		assert.Nil(t, updated.ClosedAt)
		assert.Nil(t, updated.EscalatedBy)
		assert.Nil(t, updated.EscalationType)
		assert.Nil(t, updated.EscalatedAt)
		assert.Nil(t, updated.EscalationReason)
		assert.False(t, updated.Escalated())
	})

	t.Run("input ticket is not mutated", func(t *testing.T) {
		ticket := domain.Ticket{Status: domain.TicketStatusInProgress, AssignedToUserID: &agentID}
		_, err := ApplyTransition(ticket, domain.TicketStatusResolved, domain.RoleAgent, "", now)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
		assert.Nil(t, ticket.ResolvedAt)
	})
}

func TestTargetsFrom(t *testing.T) {
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusAssigned}, TargetsFrom(domain.TicketStatusOpen))
	assert.Equal(t,
		[]domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusEscalated},
		TargetsFrom(domain.TicketStatusInProgress))
	assert.Empty(t, TargetsFrom(domain.TicketStatus("UNKNOWN")))
}
