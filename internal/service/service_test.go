package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/sla"
)

type testEnv struct {
	tickets     *fakeTicketRepo
	assignments *fakeAssignmentRepo
	workloads   *fakeWorkloadRepo
	slas        *fakeSLARepo
	users       *fakeUserRepo
	history     *fakeHistoryRepo
	queue       *fakeQueue
	dispatcher  events.Dispatcher

	slaService        *SLAService
	ticketService     *TicketService
	assignmentService *AssignmentService
	escalationService *EscalationService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		tickets:    newFakeTicketRepo(),
		workloads:  newFakeWorkloadRepo(),
		slas:       newFakeSLARepo(),
		users:      newFakeUserRepo(),
		history:    newFakeHistoryRepo(),
		queue:      &fakeQueue{},
		dispatcher: events.NewInMemoryDispatcher(),
	}
	env.assignments = newFakeAssignmentRepo(env.workloads)

	env.slaService = NewSLAService(env.slas, sla.Default(), env.dispatcher)
	env.ticketService = NewTicketService(TicketDependencies{
		TicketRepo:     env.tickets,
		AssignmentRepo: env.assignments,
		HistoryRepo:    env.history,
		SLAService:     env.slaService,
		Dispatcher:     env.dispatcher,
	})
	env.assignmentService = NewAssignmentService(AssignmentDependencies{
		TicketRepo:     env.tickets,
		AssignmentRepo: env.assignments,
		WorkloadRepo:   env.workloads,
		UserRepo:       env.users,
		HistoryRepo:    env.history,
		SLAService:     env.slaService,
		Dispatcher:     env.dispatcher,
	})
	env.escalationService = NewEscalationService(EscalationDependencies{
		TicketRepo:  env.tickets,
		UserRepo:    env.users,
		HistoryRepo: env.history,
		Queue:       env.queue,
		Dispatcher:  env.dispatcher,
	})
	return env
}

func (e *testEnv) addUser(t *testing.T, role domain.UserRole) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:     "user-" + string(role) + "-" + t.Name(),
		Email:        t.Name() + string(role) + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Active:       true,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	if role == domain.RoleAgent {
		require.NoError(t, e.workloads.Ensure(context.Background(), user.ID))
	}
	return user
}

func (e *testEnv) createTicket(t *testing.T, creator *domain.User, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := e.ticketService.Create(context.Background(), asActor(creator), TicketCreateInput{
		Title:       "printer on fire",
		Description: "the printer in the hallway is actively burning",
		Category:    domain.CategoryTechnical,
		Priority:    priority,
	})
	require.NoError(t, err)
	return ticket
}

// moveTo drives a ticket into the wanted status through the real services.
func (e *testEnv) moveTo(t *testing.T, ticket *domain.Ticket, agent *domain.User, manager *domain.User, target domain.TicketStatus) *domain.Ticket {
	t.Helper()
	ctx := context.Background()

	result, err := e.assignmentService.AssignManual(ctx, asActor(manager), ticket.ID, agent.ID, nil, "")
	require.NoError(t, err)
	current := result.Ticket
	if target == domain.TicketStatusAssigned {
		return current
	}

	current, err = e.ticketService.ChangeStatus(ctx, asActor(agent), current.ID, domain.TicketStatusInProgress, "", nil)
	require.NoError(t, err)
	if target == domain.TicketStatusInProgress {
		return current
	}

	current, err = e.ticketService.ChangeStatus(ctx, asActor(agent), current.ID, domain.TicketStatusResolved, "done", nil)
	require.NoError(t, err)
	if target == domain.TicketStatusResolved {
		return current
	}

	t.Fatalf("unsupported target status %s", target)
	return nil
}

func asActor(user *domain.User) Actor {
	return Actor{ID: user.ID, Role: user.Role}
}
