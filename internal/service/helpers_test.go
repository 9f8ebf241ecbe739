package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"care-inventory-backend/internal/clock"
	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/eventlog"
	"care-inventory-backend/internal/repository"
	"care-inventory-backend/internal/repository/memory"
	"care-inventory-backend/internal/service"
)

var errAppend = errors.New("event store unavailable")

type fixture struct {
	ctx    context.Context
	clock  *clock.Manual
	store  *memory.Store
	items  service.ItemService
	users  service.UserService
	loans  service.LoanService
	dash   service.DashboardService
	events service.EventService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithEvents(t, nil)
}

// newFixtureWithEvents lets a test decorate the event repository seen by the
// services, e.g. to inject append failures.
func newFixtureWithEvents(t *testing.T, wrap func(repository.EventRepository) repository.EventRepository) *fixture {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	store := memory.NewStore(clk)
	events := store.Events
	if wrap != nil {
		events = wrap(events)
	}
	loans := service.NewLoanService(store, store.Loans, store.Items, store.Users, events, clk)
	return &fixture{
		ctx:    context.Background(),
		clock:  clk,
		store:  store,
		items:  service.NewItemService(store, store.Items, events, clk),
		users:  service.NewUserService(store, store.Users, store.Loans, events, clk),
		loans:  loans,
		dash:   service.NewDashboardService(store.Dashboard, store.Loans, events, loans),
		events: service.NewEventService(events),
	}
}

func (f *fixture) item(t *testing.T, name string, stock int32) *domain.Item {
	t.Helper()
	it, err := f.items.CreateItem(f.ctx, service.CreateItemInput{Name: name, TotalStock: stock})
	require.NoError(t, err)
	return it
}

func (f *fixture) user(t *testing.T, name, nationalID string) *domain.User {
	t.Helper()
	u, err := f.users.CreateUser(f.ctx, service.CreateUserInput{Name: name, NationalID: nationalID, Address: "Main St 1"})
	require.NoError(t, err)
	return u
}

func (f *fixture) loan(t *testing.T, userID string, itemIDs ...string) *domain.Loan {
	t.Helper()
	l, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID:          userID,
		ItemIDs:         itemIDs,
		StartDate:       "2026-03-10",
		ExpectedEndDate: "2026-03-20",
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) available(t *testing.T, itemID string) int32 {
	t.Helper()
	it, err := f.items.GetItem(f.ctx, itemID)
	require.NoError(t, err)
	return it.AvailableStock
}

// eventsSince returns events with sequence greater than seq, oldest first.
func (f *fixture) eventsSince(t *testing.T, seq int64) []domain.Event {
	t.Helper()
	events, err := f.store.Events.ListAscending(f.ctx, seq, 0)
	require.NoError(t, err)
	return events
}

func (f *fixture) head(t *testing.T) int64 {
	t.Helper()
	seq, _, err := f.store.Events.Tail(f.ctx)
	require.NoError(t, err)
	return seq
}

func eventTypes(events []domain.Event) []domain.EventType {
	types := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func decode[T any](t *testing.T, e domain.Event) T {
	t.Helper()
	var v T
	require.NoError(t, eventlog.Decode(e.Data, &v))
	return v
}

// failingEvents fails the Nth Append call (1-based) and passes everything
// else through.
type failingEvents struct {
	repository.EventRepository
	mu     sync.Mutex
	calls  int
	failOn int
}

func (r *failingEvents) Append(ctx context.Context, e *domain.Event) error {
	r.mu.Lock()
	r.calls++
	fail := r.calls == r.failOn
	r.mu.Unlock()
	if fail {
		return errAppend
	}
	return r.EventRepository.Append(ctx, e)
}

// tamperedEvents rewrites the payload of one event on the read path used by
// chain verification.
type tamperedEvents struct {
	repository.EventRepository
	seq  int64
	data string
}

func (r *tamperedEvents) ListAscending(ctx context.Context, afterSeq int64, limit int) ([]domain.Event, error) {
	events, err := r.EventRepository.ListAscending(ctx, afterSeq, limit)
	for i := range events {
		if events[i].Sequence == r.seq {
			events[i].Data = []byte(r.data)
		}
	}
	return events, err
}

type MockDashboardRepo struct {
	mock.Mock
}

func (m *MockDashboardRepo) Counts(ctx context.Context) (*domain.DashboardCounts, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardCounts), args.Error(1)
}

type MockLoanService struct {
	mock.Mock
	service.LoanService
}

func (m *MockLoanService) SweepOverdue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
