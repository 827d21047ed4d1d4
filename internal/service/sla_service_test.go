package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
)

// adjustTracking rewrites a tracking in place, simulating the passage of
// time without sleeping.
func adjustTracking(t *testing.T, env *testEnv, ticketID string, fn func(*domain.SLATracking)) {
	t.Helper()
	ctx := context.Background()
	tracking, err := env.slas.GetByTicket(ctx, ticketID)
	require.NoError(t, err)
	fn(tracking)
	require.NoError(t, env.slas.Update(ctx, tracking))
}

func pushDeadline(t *testing.T, env *testEnv, ticketID string, resolutionDue time.Time) {
	t.Helper()
	adjustTracking(t, env, ticketID, func(tr *domain.SLATracking) {
		tr.ResolutionDueAt = resolutionDue
	})
}

func TestSLARefreshAll(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	creator := env.addUser(t, domain.RoleEndUser)

	var breachEvents []events.Event
	env.dispatcher.Subscribe(events.EventSLABreached, func(_ context.Context, e events.Event) error {
		breachEvents = append(breachEvents, e)
		return nil
	})

	overdue := env.createTicket(t, creator, domain.TicketPriorityHigh)
	pushDeadline(t, env, overdue.ID, time.Now().Add(-time.Minute))
	healthy := env.createTicket(t, creator, domain.TicketPriorityLow)

	t.Run("marks overdue tracking breached and emits once", func(t *testing.T) {
		breached, err := env.slaService.RefreshAll(ctx, time.Now())
		require.NoError(t, err)
		require.Len(t, breached, 1)
		assert.Equal(t, overdue.ID, breached[0].TicketID)
		assert.True(t, breached[0].ResolutionBreached)
		require.Len(t, breachEvents, 1)
		assert.Equal(t, overdue.ID, breachEvents[0].TicketID)

		stored, err := env.slas.GetByTicket(ctx, overdue.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SLAStatusBreached, stored.Status)
	})

	t.Run("does not re-report an already breached tracking", func(t *testing.T) {
		breached, err := env.slaService.RefreshAll(ctx, time.Now())
		require.NoError(t, err)
		assert.Empty(t, breached)
		assert.Len(t, breachEvents, 1)
	})

	t.Run("leaves healthy trackings on time", func(t *testing.T) {
		stored, err := env.slas.GetByTicket(ctx, healthy.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SLAStatusOnTime, stored.Status)
	})
}

func TestSLAWarningsAndBreaches(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	creator := env.addUser(t, domain.RoleEndUser)

	breachedTicket := env.createTicket(t, creator, domain.TicketPriorityMedium)
	pushDeadline(t, env, breachedTicket.ID, time.Now().Add(-time.Hour))

	// Ten minutes left of a one-hour window: inside the warning fraction
	// but not yet overdue.
	atRiskTicket := env.createTicket(t, creator, domain.TicketPriorityMedium)
	adjustTracking(t, env, atRiskTicket.ID, func(tr *domain.SLATracking) {
		tr.CreatedAt = time.Now().Add(-50 * time.Minute)
		tr.ResolutionDueAt = time.Now().Add(10 * time.Minute)
	})

	env.createTicket(t, creator, domain.TicketPriorityLow)

	t.Run("warnings lists only at-risk trackings", func(t *testing.T) {
		warnings, err := env.slaService.Warnings(ctx)
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Equal(t, atRiskTicket.ID, warnings[0].Tracking.TicketID)
		assert.Equal(t, domain.SLAStatusAtRisk, warnings[0].Status)
		assert.Greater(t, warnings[0].Remaining, time.Duration(0))
	})

	t.Run("breaches lists only overdue trackings", func(t *testing.T) {
		breaches, err := env.slaService.Breaches(ctx)
		require.NoError(t, err)
		require.Len(t, breaches, 1)
		assert.Equal(t, breachedTicket.ID, breaches[0].Tracking.TicketID)
	})

	t.Run("frozen trackings are excluded", func(t *testing.T) {
		require.NoError(t, env.slaService.FreezeForTicket(ctx, breachedTicket.ID))
		breaches, err := env.slaService.Breaches(ctx)
		require.NoError(t, err)
		assert.Empty(t, breaches)
	})
}

func TestSLAResponseRecording(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	creator := env.addUser(t, domain.RoleEndUser)

	t.Run("timely response leaves tracking clean", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)
		require.NoError(t, env.slaService.RecordResponse(ctx, ticket.ID, time.Now()))

		tracking, err := env.slas.GetByTicket(ctx, ticket.ID)
		require.NoError(t, err)
		assert.False(t, tracking.ResponseBreached)
	})

	t.Run("late response marks the tracking permanently", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)
		tracking, err := env.slas.GetByTicket(ctx, ticket.ID)
		require.NoError(t, err)

		require.NoError(t, env.slaService.RecordResponse(ctx, ticket.ID, tracking.ResponseDueAt.Add(time.Minute)))

		tracking, err = env.slas.GetByTicket(ctx, ticket.ID)
		require.NoError(t, err)
		assert.True(t, tracking.ResponseBreached)
	})

	t.Run("missing tracking is not an error", func(t *testing.T) {
		require.NoError(t, env.slaService.RecordResponse(ctx, "no-such-ticket", time.Now()))
	})
}
