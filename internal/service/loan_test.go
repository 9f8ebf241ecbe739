package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/repository"
	"care-inventory-backend/internal/service"
)

func TestLoanService_CreateLoan(t *testing.T) {
	f := newFixture(t)
	walker := f.item(t, "Walker", 2)
	bed := f.item(t, "Electric bed", 1)
	u := f.user(t, "Ana", "11111111A")
	before := f.head(t)

	l, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID:          u.ID,
		ItemIDs:         []string{walker.ID, bed.ID},
		StartDate:       "2026-03-10",
		ExpectedEndDate: "2026-04-10",
		Notes:           strp("deliver in the morning"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, l.Status)
	assert.Equal(t, "Ana", l.UserName)
	assert.Nil(t, l.ActualEndDate)
	require.Len(t, l.Items, 2)
	assert.Equal(t, walker.ID, l.Items[0].ItemID)
	assert.Equal(t, "Walker", l.Items[0].ItemName)
	assert.Equal(t, bed.ID, l.Items[1].ItemID)
	assert.Equal(t, int32(1), l.Items[1].Quantity)

	assert.Equal(t, int32(1), f.available(t, walker.ID))
	assert.Equal(t, int32(0), f.available(t, bed.ID))

	events := f.eventsSince(t, before)
	assert.Equal(t, []domain.EventType{domain.EventLoanCreated, domain.EventStockReserved, domain.EventStockReserved}, eventTypes(events))
	assert.Equal(t, domain.LoanCreatedPayload{
		LoanID:          l.ID,
		UserID:          u.ID,
		Items:           []string{walker.ID, bed.ID},
		StartDate:       "2026-03-10",
		ExpectedEndDate: "2026-04-10",
	}, decode[domain.LoanCreatedPayload](t, events[0]))
	assert.Equal(t, domain.StockMovementPayload{ItemID: walker.ID, Quantity: 1, LoanID: l.ID}, decode[domain.StockMovementPayload](t, events[1]))
	assert.Equal(t, domain.StockMovementPayload{ItemID: bed.ID, Quantity: 1, LoanID: l.ID}, decode[domain.StockMovementPayload](t, events[2]))
	for _, e := range events {
		require.NotNil(t, e.LoanID)
		assert.Equal(t, l.ID, *e.LoanID)
	}
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, u.ID, *events[0].UserID)
}

func TestLoanService_CreateLoan_Validation(t *testing.T) {
	f := newFixture(t)
	cane := f.item(t, "Cane", 1)
	u := f.user(t, "Ana", "11111111A")

	tests := []struct {
		name    string
		input   service.CreateLoanInput
		wantErr error
	}{
		{"No items", service.CreateLoanInput{UserID: u.ID, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-11"}, domain.ErrInvalidInput},
		{"Duplicate item", service.CreateLoanInput{UserID: u.ID, ItemIDs: []string{cane.ID, cane.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-11"}, domain.ErrInvalidInput},
		{"Bad start date", service.CreateLoanInput{UserID: u.ID, ItemIDs: []string{cane.ID}, StartDate: "10/03/2026", ExpectedEndDate: "2026-03-11"}, domain.ErrInvalidInput},
		{"End before start", service.CreateLoanInput{UserID: u.ID, ItemIDs: []string{cane.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-09"}, domain.ErrInvalidInput},
		{"Missing user id", service.CreateLoanInput{ItemIDs: []string{cane.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-11"}, domain.ErrInvalidInput},
		{"Unknown user", service.CreateLoanInput{UserID: "missing", ItemIDs: []string{cane.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-11"}, domain.ErrNotFound},
		{"Unknown item", service.CreateLoanInput{UserID: u.ID, ItemIDs: []string{cane.ID, "missing"}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-11"}, domain.ErrNotFound},
	}

	before := f.head(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.loans.CreateLoan(f.ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, before, f.head(t))
	assert.Equal(t, int32(1), f.available(t, cane.ID))
	loans, err := f.loans.ListLoans(f.ctx, domain.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestLoanService_CreateLoan_SameDayReturn(t *testing.T) {
	f := newFixture(t)
	cane := f.item(t, "Cane", 1)
	u := f.user(t, "Ana", "11111111A")

	_, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID: u.ID, ItemIDs: []string{cane.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-10",
	})
	assert.NoError(t, err)
}

// A loan whose later item is out of stock must leave earlier items untouched.
func TestLoanService_CreateLoan_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	walker := f.item(t, "Walker", 1)
	hoist := f.item(t, "Patient hoist", 0)
	u := f.user(t, "Ana", "11111111A")
	before := f.head(t)

	_, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID: u.ID, ItemIDs: []string{walker.ID, hoist.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-12",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, int32(1), f.available(t, walker.ID))
	assert.Equal(t, int32(0), f.available(t, hoist.ID))
	assert.Equal(t, before, f.head(t))
	loans, err := f.loans.ListLoans(f.ctx, domain.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestLoanService_CreateLoan_EventFailureRollsBack(t *testing.T) {
	failing := &failingEvents{}
	f := newFixtureWithEvents(t, func(r repository.EventRepository) repository.EventRepository {
		failing.EventRepository = r
		return failing
	})
	walker := f.item(t, "Walker", 2)
	u := f.user(t, "Ana", "11111111A")
	before := f.head(t)

	// fail the STOCK_RESERVED append that follows LOAN_CREATED
	failing.failOn = failing.calls + 2

	_, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID: u.ID, ItemIDs: []string{walker.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-12",
	})
	assert.ErrorIs(t, err, errAppend)

	assert.Equal(t, int32(2), f.available(t, walker.ID))
	assert.Equal(t, before, f.head(t))
	loans, err := f.loans.ListLoans(f.ctx, domain.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans)

	// the chain stays intact and the next loan goes through
	f.loan(t, u.ID, walker.ID)
	report, err := f.events.VerifyChain(f.ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestLoanService_TwoUnitScenario(t *testing.T) {
	f := newFixture(t)
	bed := f.item(t, "Electric bed", 2)
	ana := f.user(t, "Ana", "11111111A")
	luis := f.user(t, "Luis", "22222222B")
	eva := f.user(t, "Eva", "33333333C")

	first := f.loan(t, ana.ID, bed.ID)
	f.loan(t, luis.ID, bed.ID)
	assert.Equal(t, int32(0), f.available(t, bed.ID))

	_, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID: eva.ID, ItemIDs: []string{bed.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-20",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.loans.ReturnLoan(f.ctx, first.ID, strp("good"), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.available(t, bed.ID))

	third := f.loan(t, eva.ID, bed.ID)
	assert.Equal(t, "Eva", third.UserName)
	assert.Equal(t, int32(0), f.available(t, bed.ID))
}

func TestLoanService_ConcurrentCreateForLastUnit(t *testing.T) {
	f := newFixture(t)
	chair := f.item(t, "Wheelchair", 1)
	u := f.user(t, "Ana", "11111111A")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
				UserID: u.ID, ItemIDs: []string{chair.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-20",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int32(0), f.available(t, chair.ID))

	loans, err := f.loans.ListActiveLoans(f.ctx)
	require.NoError(t, err)
	assert.Len(t, loans, 1)

	reserved, err := f.events.List(f.ctx, domain.EventFilter{Type: domain.EventStockReserved})
	require.NoError(t, err)
	assert.Len(t, reserved, 1)

	report, err := f.events.VerifyChain(f.ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestLoanService_ReturnLoan(t *testing.T) {
	f := newFixture(t)
	walker := f.item(t, "Walker", 1)
	cane := f.item(t, "Cane", 1)
	u := f.user(t, "Ana", "11111111A")
	l, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID: u.ID, ItemIDs: []string{walker.ID, cane.ID}, StartDate: "2026-03-01", ExpectedEndDate: "2026-03-20", Notes: strp("first floor"),
	})
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)
	before := f.head(t)

	returned, err := f.loans.ReturnLoan(f.ctx, l.ID, strp("worn wheels"), strp("picked up by son"))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusReturned, returned.Status)
	require.NotNil(t, returned.ActualEndDate)
	assert.Equal(t, "2026-03-13", *returned.ActualEndDate)
	require.NotNil(t, returned.Notes)
	assert.Equal(t, "picked up by son", *returned.Notes)

	assert.Equal(t, int32(1), f.available(t, walker.ID))
	assert.Equal(t, int32(1), f.available(t, cane.ID))

	events := f.eventsSince(t, before)
	assert.Equal(t, []domain.EventType{domain.EventStockReleased, domain.EventStockReleased, domain.EventLoanReturned}, eventTypes(events))
	assert.Equal(t, domain.StockMovementPayload{ItemID: walker.ID, Quantity: 1, LoanID: l.ID}, decode[domain.StockMovementPayload](t, events[0]))
	assert.Equal(t, domain.StockMovementPayload{ItemID: cane.ID, Quantity: 1, LoanID: l.ID}, decode[domain.StockMovementPayload](t, events[1]))
	assert.Equal(t, domain.LoanReturnedPayload{
		LoanID:    l.ID,
		Condition: strp("worn wheels"),
		Notes:     strp("picked up by son"),
	}, decode[domain.LoanReturnedPayload](t, events[2]))

	t.Run("Twice", func(t *testing.T) {
		before := f.head(t)
		_, err := f.loans.ReturnLoan(f.ctx, l.ID, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, int32(1), f.available(t, walker.ID))
		assert.Equal(t, before, f.head(t))
	})

	t.Run("Unknown loan", func(t *testing.T) {
		_, err := f.loans.ReturnLoan(f.ctx, "missing", nil, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestLoanService_ReturnLoan_KeepsNotesWhenOmitted(t *testing.T) {
	f := newFixture(t)
	cane := f.item(t, "Cane", 1)
	u := f.user(t, "Ana", "11111111A")
	l, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID: u.ID, ItemIDs: []string{cane.ID}, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-20", Notes: strp("original"),
	})
	require.NoError(t, err)

	returned, err := f.loans.ReturnLoan(f.ctx, l.ID, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, returned.Notes)
	assert.Equal(t, "original", *returned.Notes)

	events := f.eventsSince(t, f.head(t)-1)
	p := decode[domain.LoanReturnedPayload](t, events[0])
	assert.Nil(t, p.Condition)
	require.NotNil(t, p.Notes)
	assert.Equal(t, "original", *p.Notes)
}

func TestLoanService_CancelReturn(t *testing.T) {
	f := newFixture(t)
	bed := f.item(t, "Electric bed", 1)
	ana := f.user(t, "Ana", "11111111A")
	luis := f.user(t, "Luis", "22222222B")
	l := f.loan(t, ana.ID, bed.ID)

	t.Run("Not returned", func(t *testing.T) {
		_, err := f.loans.CancelReturn(f.ctx, l.ID, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	_, err := f.loans.ReturnLoan(f.ctx, l.ID, nil, nil)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		before := f.head(t)
		reopened, err := f.loans.CancelReturn(f.ctx, l.ID, strp("returned by mistake"))
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusActive, reopened.Status)
		assert.Nil(t, reopened.ActualEndDate)
		assert.Equal(t, int32(0), f.available(t, bed.ID))

		events := f.eventsSince(t, before)
		assert.Equal(t, []domain.EventType{domain.EventStockReserved, domain.EventReturnCancelled}, eventTypes(events))
		assert.Equal(t, domain.StockMovementPayload{
			ItemID: bed.ID, Quantity: 1, LoanID: l.ID, Reason: domain.ReasonReturnCancelled,
		}, decode[domain.StockMovementPayload](t, events[0]))
		assert.Equal(t, domain.ReturnCancelledPayload{
			LoanID:      l.ID,
			Reason:      strp("returned by mistake"),
			CancelledAt: "2026-03-10T09:00:00Z",
		}, decode[domain.ReturnCancelledPayload](t, events[1]))
	})

	t.Run("Stock taken meanwhile", func(t *testing.T) {
		_, err := f.loans.ReturnLoan(f.ctx, l.ID, nil, nil)
		require.NoError(t, err)
		f.loan(t, luis.ID, bed.ID)
		before := f.head(t)

		_, err = f.loans.CancelReturn(f.ctx, l.ID, nil)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		still, err := f.loans.GetLoan(f.ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusReturned, still.Status)
		assert.NotNil(t, still.ActualEndDate)
		assert.Equal(t, before, f.head(t))
	})
}

func TestLoanService_SweepOverdue(t *testing.T) {
	f := newFixture(t)
	cane := f.item(t, "Cane", 2)
	u := f.user(t, "Ana", "11111111A")
	due, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID: u.ID, ItemIDs: []string{cane.ID}, StartDate: "2026-03-01", ExpectedEndDate: "2026-03-09",
	})
	require.NoError(t, err)
	today, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
		UserID: u.ID, ItemIDs: []string{cane.ID}, StartDate: "2026-03-01", ExpectedEndDate: "2026-03-10",
	})
	require.NoError(t, err)
	before := f.head(t)

	n, err := f.loans.SweepOverdue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, before, f.head(t), "sweeping records no events")

	overdue, err := f.loans.ListOverdueLoans(f.ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, due.ID, overdue[0].ID)

	active, err := f.loans.ListActiveLoans(f.ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, today.ID, active[0].ID)

	n, err = f.loans.SweepOverdue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	returned, err := f.loans.ReturnLoan(f.ctx, due.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusReturned, returned.Status)
	assert.Equal(t, int32(1), f.available(t, cane.ID))
}

func TestLoanService_ListLoans(t *testing.T) {
	f := newFixture(t)
	cane := f.item(t, "Cane", 3)
	ana := f.user(t, "Ana", "11111111A")
	luis := f.user(t, "Luis", "22222222B")
	first := f.loan(t, ana.ID, cane.ID)
	f.clock.Advance(time.Minute)
	second := f.loan(t, luis.ID, cane.ID)

	all, err := f.loans.ListLoans(f.ctx, domain.LoanFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	byUser, err := f.loans.ListLoans(f.ctx, domain.LoanFilter{UserID: ana.ID})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, first.ID, byUser[0].ID)

	_, err = f.loans.ListLoans(f.ctx, domain.LoanFilter{Status: "pending"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Stock invariants hold after any mix of loan operations.
func TestLoanService_StockInvariants(t *testing.T) {
	f := newFixture(t)
	items := []*domain.Item{f.item(t, "Walker", 2), f.item(t, "Cane", 1), f.item(t, "Electric bed", 3)}
	u := f.user(t, "Ana", "11111111A")

	var open []*domain.Loan
	var returned []*domain.Loan
	for step := 0; step < 30; step++ {
		switch step % 4 {
		case 0, 1:
			ids := []string{items[step%3].ID, items[(step+1)%3].ID}
			l, err := f.loans.CreateLoan(f.ctx, service.CreateLoanInput{
				UserID: u.ID, ItemIDs: ids, StartDate: "2026-03-10", ExpectedEndDate: "2026-03-11",
			})
			if err != nil {
				require.ErrorIs(t, err, domain.ErrInsufficientStock)
				continue
			}
			open = append(open, l)
		case 2:
			if len(open) == 0 {
				continue
			}
			l := open[0]
			open = open[1:]
			_, err := f.loans.ReturnLoan(f.ctx, l.ID, nil, nil)
			require.NoError(t, err)
			returned = append(returned, l)
		case 3:
			if len(returned) == 0 {
				continue
			}
			l := returned[len(returned)-1]
			if _, err := f.loans.CancelReturn(f.ctx, l.ID, nil); err != nil {
				require.ErrorIs(t, err, domain.ErrInsufficientStock)
				continue
			}
			returned = returned[:len(returned)-1]
			open = append(open, l)
		}

		onLoan := map[string]int32{}
		for _, l := range open {
			for _, li := range l.Items {
				onLoan[li.ItemID]++
			}
		}
		for _, it := range items {
			got, err := f.items.GetItem(f.ctx, it.ID)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got.AvailableStock, int32(0))
			assert.LessOrEqual(t, got.AvailableStock, got.TotalStock)
			assert.Equal(t, onLoan[it.ID], got.OnLoan(), "step %d item %s", step, it.Name)
		}
	}

	report, err := f.events.VerifyChain(f.ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}
