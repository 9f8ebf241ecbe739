// Package memory is a map-backed implementation of the repository interfaces
// used by service, transport and job tests.
//
// A single RWMutex guards all state. WithTx holds the write lock for the whole
// transaction and restores a snapshot when fn fails, so every logical
// operation is serialized and all-or-nothing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"care-inventory-backend/internal/clock"
	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/repository"
)

type txKey struct{}

type itemRecord struct {
	item domain.Item
	n    int64
}

type userRecord struct {
	user domain.User
	n    int64
}

type loanRecord struct {
	loan domain.Loan // Items hold ids only; names are resolved on read
	n    int64
}

type state struct {
	items  map[string]itemRecord
	users  map[string]userRecord
	loans  map[string]loanRecord
	events []domain.Event
	n      int64
}

func (st *state) clone() state {
	c := state{
		items:  make(map[string]itemRecord, len(st.items)),
		users:  make(map[string]userRecord, len(st.users)),
		loans:  make(map[string]loanRecord, len(st.loans)),
		events: st.events[:len(st.events):len(st.events)],
		n:      st.n,
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.loans {
		v.loan.Items = append([]domain.LoanItem(nil), v.loan.Items...)
		c.loans[k] = v
	}
	return c
}

type Store struct {
	mu    sync.RWMutex
	clock clock.Clock
	st    state

	Items     repository.ItemRepository
	Users     repository.UserRepository
	Loans     repository.LoanRepository
	Events    repository.EventRepository
	Dashboard repository.DashboardRepository
}

// NewStore returns an empty store. c stamps updated_at on writes; nil means the system clock.
func NewStore(c clock.Clock) *Store {
	if c == nil {
		c = clock.NewSystem(nil)
	}
	s := &Store{
		clock: c,
		st: state{
			items: make(map[string]itemRecord),
			users: make(map[string]userRecord),
			loans: make(map[string]loanRecord),
		},
	}
	s.Items = &itemRepository{s}
	s.Users = &userRepository{s}
	s.Loans = &loanRepository{s}
	s.Events = &eventRepository{s}
	s.Dashboard = &dashboardRepository{s}
	return s
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// write takes the write lock unless ctx already holds it through WithTx.
func (s *Store) write(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) read(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) next() int64 {
	s.st.n++
	return s.st.n
}

func (s *Store) now() time.Time {
	return s.clock.Now()
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ---- items ----

type itemRepository struct{ s *Store }

func (r *itemRepository) Create(ctx context.Context, it *domain.Item) error {
	defer r.s.write(ctx)()
	if _, ok := r.s.st.items[it.ID]; ok {
		return fmt.Errorf("%w: item %s already exists", domain.ErrConflict, it.ID)
	}
	r.s.st.items[it.ID] = itemRecord{item: *it, n: r.s.next()}
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	defer r.s.read(ctx)()
	return r.get(id)
}

func (r *itemRepository) GetForUpdate(ctx context.Context, id string) (*domain.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *itemRepository) get(id string) (*domain.Item, error) {
	rec, ok := r.s.st.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
	}
	it := rec.item
	return &it, nil
}

func (r *itemRepository) List(ctx context.Context) ([]domain.Item, error) {
	return r.filter(ctx, func(*domain.Item) bool { return true })
}

func (r *itemRepository) Search(ctx context.Context, q string) ([]domain.Item, error) {
	return r.filter(ctx, func(it *domain.Item) bool {
		return containsFold(it.Name, q) || containsFold(it.Description, q)
	})
}

func (r *itemRepository) filter(ctx context.Context, keep func(*domain.Item) bool) ([]domain.Item, error) {
	defer r.s.read(ctx)()
	recs := make([]itemRecord, 0, len(r.s.st.items))
	for _, rec := range r.s.st.items {
		if keep(&rec.item) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].item.Name != recs[j].item.Name {
			return recs[i].item.Name < recs[j].item.Name
		}
		return recs[i].n < recs[j].n
	})
	items := make([]domain.Item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, rec.item)
	}
	return items, nil
}

func (r *itemRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	defer r.s.read(ctx)()
	for _, rec := range r.s.st.items {
		if strings.EqualFold(rec.item.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *itemRepository) UpdateStock(ctx context.Context, id string, total, available int32) (*domain.Item, error) {
	defer r.s.write(ctx)()
	return r.mutate(id, func(it *domain.Item) error {
		if total < 0 || available < 0 || available > total {
			return fmt.Errorf("%w: total %d, available %d", domain.ErrInvalidState, total, available)
		}
		it.TotalStock = total
		it.AvailableStock = available
		return nil
	})
}

func (r *itemRepository) Reserve(ctx context.Context, id string, qty int32) (*domain.Item, error) {
	defer r.s.write(ctx)()
	return r.mutate(id, func(it *domain.Item) error {
		if it.AvailableStock < qty {
			return fmt.Errorf("%w: item %s has fewer than %d available", domain.ErrInsufficientStock, id, qty)
		}
		it.AvailableStock -= qty
		return nil
	})
}

func (r *itemRepository) Release(ctx context.Context, id string, qty int32) (*domain.Item, error) {
	defer r.s.write(ctx)()
	return r.mutate(id, func(it *domain.Item) error {
		if qty > it.TotalStock-it.AvailableStock {
			return fmt.Errorf("%w: releasing %d units of item %s would exceed total stock", domain.ErrInvalidState, qty, id)
		}
		it.AvailableStock += qty
		return nil
	})
}

func (r *itemRepository) mutate(id string, fn func(*domain.Item) error) (*domain.Item, error) {
	rec, ok := r.s.st.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
	}
	if err := fn(&rec.item); err != nil {
		return nil, err
	}
	rec.item.UpdatedAt = r.s.now()
	r.s.st.items[id] = rec
	it := rec.item
	return &it, nil
}

// ---- users ----

type userRepository struct{ s *Store }

func (r *userRepository) nationalIDTaken(nationalID, exceptID string) bool {
	for id, rec := range r.s.st.users {
		if id != exceptID && rec.user.NationalID == nationalID {
			return true
		}
	}
	return false
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	defer r.s.write(ctx)()
	if _, ok := r.s.st.users[u.ID]; ok {
		return fmt.Errorf("%w: user %s already exists", domain.ErrConflict, u.ID)
	}
	if r.nationalIDTaken(u.NationalID, "") {
		return fmt.Errorf("%w: national id already registered", domain.ErrConflict)
	}
	r.s.st.users[u.ID] = userRecord{user: *u, n: r.s.next()}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer r.s.read(ctx)()
	rec, ok := r.s.st.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	u := rec.user
	return &u, nil
}

func (r *userRepository) GetForShare(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *userRepository) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *userRepository) Update(ctx context.Context, id string, c domain.UserChanges) (*domain.User, error) {
	defer r.s.write(ctx)()
	rec, ok := r.s.st.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	if c.NationalID != nil && r.nationalIDTaken(*c.NationalID, id) {
		return nil, fmt.Errorf("%w: national id already registered", domain.ErrConflict)
	}
	c.Apply(&rec.user)
	rec.user.UpdatedAt = r.s.now()
	r.s.st.users[id] = rec
	u := rec.user
	return &u, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	defer r.s.write(ctx)()
	if _, ok := r.s.st.users[id]; !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	delete(r.s.st.users, id)
	for lid, rec := range r.s.st.loans {
		if rec.loan.UserID == id {
			rec.loan.UserID = ""
			r.s.st.loans[lid] = rec
		}
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.filter(ctx, func(*domain.User) bool { return true })
}

func (r *userRepository) Search(ctx context.Context, q string) ([]domain.User, error) {
	return r.filter(ctx, func(u *domain.User) bool {
		return containsFold(u.Name, q) || containsFold(u.NationalID, q) || containsFold(u.Address, q)
	})
}

func (r *userRepository) filter(ctx context.Context, keep func(*domain.User) bool) ([]domain.User, error) {
	defer r.s.read(ctx)()
	recs := make([]userRecord, 0, len(r.s.st.users))
	for _, rec := range r.s.st.users {
		if keep(&rec.user) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].user.Name != recs[j].user.Name {
			return recs[i].user.Name < recs[j].user.Name
		}
		return recs[i].n < recs[j].n
	})
	users := make([]domain.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, rec.user)
	}
	return users, nil
}

// ---- loans ----

type loanRepository struct{ s *Store }

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	defer r.s.write(ctx)()
	if _, ok := r.s.st.loans[l.ID]; ok {
		return fmt.Errorf("%w: loan %s already exists", domain.ErrConflict, l.ID)
	}
	if _, ok := r.s.st.users[l.UserID]; !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, l.UserID)
	}
	seen := make(map[string]bool, len(l.Items))
	for _, li := range l.Items {
		if _, ok := r.s.st.items[li.ItemID]; !ok {
			return fmt.Errorf("%w: item %s", domain.ErrNotFound, li.ItemID)
		}
		if seen[li.ItemID] {
			return fmt.Errorf("%w: item listed twice in loan %s", domain.ErrInvalidInput, l.ID)
		}
		seen[li.ItemID] = true
	}

	stored := *l
	stored.Items = make([]domain.LoanItem, len(l.Items))
	for i, li := range l.Items {
		li.ItemName = ""
		li.Quantity = 1
		stored.Items[i] = li
	}
	r.s.st.loans[l.ID] = loanRecord{loan: stored, n: r.s.next()}
	return nil
}

// view copies a stored loan and resolves item names.
func (r *loanRepository) view(rec loanRecord) domain.Loan {
	l := rec.loan
	l.Items = make([]domain.LoanItem, len(rec.loan.Items))
	for i, li := range rec.loan.Items {
		if it, ok := r.s.st.items[li.ItemID]; ok {
			li.ItemName = it.item.Name
		}
		l.Items[i] = li
	}
	return l
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	defer r.s.read(ctx)()
	return r.get(id)
}

func (r *loanRepository) get(id string) (*domain.Loan, error) {
	rec, ok := r.s.st.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", domain.ErrNotFound, id)
	}
	l := r.view(rec)
	return &l, nil
}

func (r *loanRepository) List(ctx context.Context, f domain.LoanFilter) ([]domain.Loan, error) {
	defer r.s.read(ctx)()
	recs := make([]loanRecord, 0, len(r.s.st.loans))
	for _, rec := range r.s.st.loans {
		if f.Status != "" && rec.loan.Status != f.Status {
			continue
		}
		if f.UserID != "" && rec.loan.UserID != f.UserID {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].loan.CreatedAt.Equal(recs[j].loan.CreatedAt) {
			return recs[i].loan.CreatedAt.After(recs[j].loan.CreatedAt)
		}
		return recs[i].n > recs[j].n
	})
	if f.Limit > 0 && len(recs) > f.Limit {
		recs = recs[:f.Limit]
	}
	loans := make([]domain.Loan, 0, len(recs))
	for _, rec := range recs {
		loans = append(loans, r.view(rec))
	}
	return loans, nil
}

func (r *loanRepository) transition(id string, from []domain.LoanStatus, apply func(*domain.Loan)) (*domain.Loan, error) {
	rec, ok := r.s.st.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", domain.ErrNotFound, id)
	}
	allowed := false
	for _, st := range from {
		if rec.loan.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: loan %s is %s", domain.ErrInvalidTransition, id, rec.loan.Status)
	}
	apply(&rec.loan)
	rec.loan.UpdatedAt = r.s.now()
	r.s.st.loans[id] = rec
	l := r.view(rec)
	return &l, nil
}

func (r *loanRepository) MarkReturned(ctx context.Context, id, endDate string, notes *string) (*domain.Loan, error) {
	defer r.s.write(ctx)()
	return r.transition(id, []domain.LoanStatus{domain.LoanStatusActive, domain.LoanStatusOverdue}, func(l *domain.Loan) {
		l.Status = domain.LoanStatusReturned
		l.ActualEndDate = &endDate
		if notes != nil {
			l.Notes = notes
		}
	})
}

func (r *loanRepository) Reopen(ctx context.Context, id string) (*domain.Loan, error) {
	defer r.s.write(ctx)()
	return r.transition(id, []domain.LoanStatus{domain.LoanStatusReturned}, func(l *domain.Loan) {
		l.Status = domain.LoanStatusActive
		l.ActualEndDate = nil
	})
}

func (r *loanRepository) MarkOverdue(ctx context.Context, today string) (int64, error) {
	defer r.s.write(ctx)()
	var n int64
	now := r.s.now()
	for id, rec := range r.s.st.loans {
		// dates share one fixed-width layout, so string order is date order
		if rec.loan.Status == domain.LoanStatusActive && rec.loan.ExpectedEndDate < today {
			rec.loan.Status = domain.LoanStatusOverdue
			rec.loan.UpdatedAt = now
			r.s.st.loans[id] = rec
			n++
		}
	}
	return n, nil
}

func (r *loanRepository) CountOpenByUser(ctx context.Context, userID string) (int64, error) {
	defer r.s.read(ctx)()
	var n int64
	for _, rec := range r.s.st.loans {
		if rec.loan.UserID == userID && rec.loan.Status.IsOpen() {
			n++
		}
	}
	return n, nil
}

// ---- events ----

type eventRepository struct{ s *Store }

func (r *eventRepository) Tail(ctx context.Context) (int64, string, error) {
	defer r.s.read(ctx)()
	if len(r.s.st.events) == 0 {
		return 0, "", nil
	}
	last := r.s.st.events[len(r.s.st.events)-1]
	return last.Sequence, last.Hash, nil
}

func (r *eventRepository) Append(ctx context.Context, e *domain.Event) error {
	defer r.s.write(ctx)()
	var lastSeq int64
	if n := len(r.s.st.events); n > 0 {
		lastSeq = r.s.st.events[n-1].Sequence
	}
	if e.Sequence != lastSeq+1 {
		return fmt.Errorf("%w: event sequence %d already taken", domain.ErrConflict, e.Sequence)
	}
	stored := *e
	stored.Data = append([]byte(nil), e.Data...)
	r.s.st.events = append(r.s.st.events, stored)
	return nil
}

func (r *eventRepository) List(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	defer r.s.read(ctx)()
	events := []domain.Event{}
	for i := len(r.s.st.events) - 1; i >= 0; i-- {
		e := r.s.st.events[i]
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.LoanID != "" && (e.LoanID == nil || *e.LoanID != f.LoanID) {
			continue
		}
		if f.UserID != "" && (e.UserID == nil || *e.UserID != f.UserID) {
			continue
		}
		events = append(events, e)
		if f.Limit > 0 && len(events) == f.Limit {
			break
		}
	}
	return events, nil
}

func (r *eventRepository) ListAscending(ctx context.Context, afterSeq int64, limit int) ([]domain.Event, error) {
	defer r.s.read(ctx)()
	events := []domain.Event{}
	for _, e := range r.s.st.events {
		if e.Sequence <= afterSeq {
			continue
		}
		events = append(events, e)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

// ---- dashboard ----

type dashboardRepository struct{ s *Store }

func (r *dashboardRepository) Counts(ctx context.Context) (*domain.DashboardCounts, error) {
	defer r.s.read(ctx)()
	c := &domain.DashboardCounts{TotalUsers: int64(len(r.s.st.users))}
	for _, rec := range r.s.st.loans {
		switch rec.loan.Status {
		case domain.LoanStatusActive:
			c.ActiveLoans++
			c.PendingReturns++
		case domain.LoanStatusOverdue:
			c.OverdueLoans++
			c.PendingReturns++
		}
	}
	for _, rec := range r.s.st.items {
		c.TotalItemsAvailable += int64(rec.item.AvailableStock)
	}
	return c, nil
}
