package memory_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-inventory-backend/internal/clock"
	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/repository/memory"
)

func newStore(t *testing.T) (*memory.Store, context.Context) {
	t.Helper()
	return memory.NewStore(clock.NewManual(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))), context.Background()
}

func seedItem(t *testing.T, s *memory.Store, id, name string, stock int32) {
	t.Helper()
	require.NoError(t, s.Items.Create(context.Background(), &domain.Item{ID: id, Name: name, TotalStock: stock, AvailableStock: stock}))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s, ctx := newStore(t)
	seedItem(t, s, "item-1", "Walker", 2)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Items.Reserve(ctx, "item-1", 1); err != nil {
			return err
		}
		if err := s.Users.Create(ctx, &domain.User{ID: "user-1", Name: "Ana", NationalID: "X1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	item, err := s.Items.GetByID(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), item.AvailableStock)
	_, err = s.Users.GetByID(ctx, "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	s, ctx := newStore(t)
	seedItem(t, s, "item-1", "Walker", 2)

	err := s.WithTx(ctx, func(ctx context.Context) error {
		return s.WithTx(ctx, func(ctx context.Context) error {
			_, err := s.Items.Reserve(ctx, "item-1", 2)
			return err
		})
	})
	require.NoError(t, err)

	item, _ := s.Items.GetByID(ctx, "item-1")
	assert.Equal(t, int32(0), item.AvailableStock)
}

func TestItems_ReserveAndReleaseGuards(t *testing.T) {
	s, ctx := newStore(t)
	seedItem(t, s, "item-1", "Walker", 1)

	_, err := s.Items.Reserve(ctx, "item-1", 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = s.Items.Release(ctx, "item-1", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = s.Items.Reserve(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	item, err := s.Items.Reserve(ctx, "item-1", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(0), item.AvailableStock)

	_, err = s.Items.Release(ctx, "item-1", math.MaxInt32)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	item, _ = s.Items.GetByID(ctx, "item-1")
	assert.Equal(t, int32(0), item.AvailableStock)
}

func TestItems_ConcurrentReserveNeverOversells(t *testing.T) {
	s, ctx := newStore(t)
	seedItem(t, s, "item-1", "Walker", 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Items.Reserve(ctx, "item-1", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	item, _ := s.Items.GetByID(ctx, "item-1")
	assert.Equal(t, int32(0), item.AvailableStock)
}

func TestItems_SearchIsCaseInsensitiveAndOrdered(t *testing.T) {
	s, ctx := newStore(t)
	seedItem(t, s, "b", "Wheelchair", 1)
	seedItem(t, s, "a", "Electric wheelchair", 1)
	seedItem(t, s, "c", "Cane", 1)

	items, err := s.Items.Search(ctx, "WHEEL")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Electric wheelchair", items[0].Name)
	assert.Equal(t, "Wheelchair", items[1].Name)

	exists, err := s.Items.ExistsByName(ctx, "cane")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUsers_NationalIDUnique(t *testing.T) {
	s, ctx := newStore(t)
	require.NoError(t, s.Users.Create(ctx, &domain.User{ID: "u1", Name: "Ana", NationalID: "X1"}))
	require.NoError(t, s.Users.Create(ctx, &domain.User{ID: "u2", Name: "Luis", NationalID: "X2"}))

	err := s.Users.Create(ctx, &domain.User{ID: "u3", Name: "Eva", NationalID: "X1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	taken := "X1"
	_, err = s.Users.Update(ctx, "u2", domain.UserChanges{NationalID: &taken})
	assert.ErrorIs(t, err, domain.ErrConflict)

	same := "X2"
	u, err := s.Users.Update(ctx, "u2", domain.UserChanges{NationalID: &same})
	require.NoError(t, err)
	assert.Equal(t, "X2", u.NationalID)
}

func TestLoans_LifecycleAndDeleteUser(t *testing.T) {
	s, ctx := newStore(t)
	seedItem(t, s, "item-1", "Walker", 1)
	require.NoError(t, s.Users.Create(ctx, &domain.User{ID: "u1", Name: "Ana", NationalID: "X1"}))

	loan := &domain.Loan{
		ID: "loan-1", UserID: "u1", UserName: "Ana",
		StartDate: "2024-02-01", ExpectedEndDate: "2024-02-20",
		Status: domain.LoanStatusActive,
		Items:  []domain.LoanItem{{ID: "li-1", LoanID: "loan-1", ItemID: "item-1", Quantity: 1}},
	}
	require.NoError(t, s.Loans.Create(ctx, loan))

	got, err := s.Loans.GetByID(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, "Walker", got.Items[0].ItemName)

	n, err := s.Loans.MarkOverdue(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	open, _ := s.Loans.CountOpenByUser(ctx, "u1")
	assert.Equal(t, int64(1), open)

	returned, err := s.Loans.MarkReturned(ctx, "loan-1", "2024-03-01", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusReturned, returned.Status)

	_, err = s.Loans.MarkReturned(ctx, "loan-1", "2024-03-01", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, s.Users.Delete(ctx, "u1"))
	got, _ = s.Loans.GetByID(ctx, "loan-1")
	assert.Equal(t, "", got.UserID)
	assert.Equal(t, "Ana", got.UserName)
}

func TestEvents_AppendRequiresNextSequence(t *testing.T) {
	s, ctx := newStore(t)

	require.NoError(t, s.Events.Append(ctx, &domain.Event{ID: "e1", Sequence: 1, Type: domain.EventUserCreated, Data: []byte(`{}`), Hash: "h1"}))
	err := s.Events.Append(ctx, &domain.Event{ID: "e2", Sequence: 1, Type: domain.EventUserCreated, Data: []byte(`{}`)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	seq, hash, err := s.Events.Tail(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	assert.Equal(t, "h1", hash)
}
