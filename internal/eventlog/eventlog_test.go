package eventlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-inventory-backend/internal/domain"
)

func newEvent(t *testing.T, id string, typ domain.EventType, payload any) *domain.Event {
	t.Helper()
	data, err := Encode(payload)
	require.NoError(t, err)
	return &domain.Event{
		ID:        id,
		Type:      typ,
		Data:      data,
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.FixedZone("CET", 3600)),
	}
}

func sealedChain(t *testing.T) []*domain.Event {
	t.Helper()
	loanID := "loan-1"
	events := []*domain.Event{
		newEvent(t, "e1", domain.EventUserCreated, domain.UserCreatedPayload{UserID: "u1", Name: "Ana"}),
		newEvent(t, "e2", domain.EventLoanCreated, domain.LoanCreatedPayload{LoanID: loanID, UserID: "u1", Items: []string{"i1"}}),
		newEvent(t, "e3", domain.EventStockReserved, domain.StockMovementPayload{ItemID: "i1", Quantity: 1, LoanID: loanID}),
	}
	events[1].LoanID = &loanID

	var seq int64
	var prev string
	for _, e := range events {
		require.NoError(t, Seal(e, seq, prev))
		seq, prev = e.Sequence, e.Hash
	}
	return events
}

func TestEncode_CamelCaseKeys(t *testing.T) {
	data, err := Encode(domain.StockUpdatedPayload{ItemID: "i1", PreviousTotal: 2, NewTotal: 5, PreviousAvailable: 1, NewAvailable: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"itemId":"i1","previousTotal":2,"newTotal":5,"previousAvailable":1,"newAvailable":4}`, string(data))

	var back domain.StockUpdatedPayload
	require.NoError(t, Decode(data, &back))
	assert.Equal(t, int32(4), back.NewAvailable)
}

func TestValidate(t *testing.T) {
	e := &domain.Event{Type: "SOMETHING_ELSE", Data: []byte(`{}`)}
	assert.ErrorIs(t, Validate(e), ErrUnknownEventType)

	e = &domain.Event{Type: domain.EventUserCreated, Data: []byte(`[1,2]`)}
	assert.ErrorIs(t, Validate(e), ErrInvalidPayload)

	e = &domain.Event{Type: domain.EventUserCreated, Data: []byte(`{"userId":`)}
	assert.ErrorIs(t, Validate(e), ErrInvalidPayload)

	e = &domain.Event{Type: domain.EventUserCreated, Data: []byte(`{"userId":"u1"}`)}
	assert.NoError(t, Validate(e))
}

func TestSeal_LinksChain(t *testing.T) {
	events := sealedChain(t)

	assert.Equal(t, int64(1), events[0].Sequence)
	assert.Equal(t, "", events[0].PrevHash)
	assert.Equal(t, events[0].Hash, events[1].PrevHash)
	assert.Equal(t, events[1].Hash, events[2].PrevHash)
	assert.Len(t, events[0].Hash, 64)
	assert.Equal(t, time.UTC, events[0].CreatedAt.Location())
	assert.Equal(t, 0, events[0].CreatedAt.Nanosecond()%1000)
}

func TestHash_StableAcrossTimezones(t *testing.T) {
	e := sealedChain(t)[0]
	copyEvent := *e
	copyEvent.CreatedAt = e.CreatedAt.In(time.FixedZone("X", -5*3600))
	assert.Equal(t, e.Hash, Hash(&copyEvent))
}

func TestVerifier_ValidChain(t *testing.T) {
	var v Verifier
	for _, e := range sealedChain(t) {
		require.NoError(t, v.Check(e))
	}
	report := v.Report(nil)
	assert.True(t, report.Valid)
	assert.Equal(t, int64(3), report.Checked)
	assert.Equal(t, int64(3), report.HeadSequence)
}

func TestVerifier_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(events []*domain.Event) []*domain.Event
		at     int64
		reason string
	}{
		{
			name: "payload edited",
			tamper: func(events []*domain.Event) []*domain.Event {
				events[1].Data = []byte(`{"loanId":"loan-2"}`)
				return events
			},
			at:     2,
			reason: "hash mismatch",
		},
		{
			name: "event deleted",
			tamper: func(events []*domain.Event) []*domain.Event {
				return []*domain.Event{events[0], events[2]}
			},
			at:     3,
			reason: "expected sequence 2",
		},
		{
			name: "event rehashed without relinking",
			tamper: func(events []*domain.Event) []*domain.Event {
				events[1].UserID = ptr("u9")
				events[1].Hash = Hash(events[1])
				return events
			},
			at:     3,
			reason: "previous hash mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Verifier
			var err error
			for _, e := range tt.tamper(sealedChain(t)) {
				if err = v.Check(e); err != nil {
					break
				}
			}
			require.Error(t, err)
			report := v.Report(err)
			assert.False(t, report.Valid)
			assert.Equal(t, tt.at, report.BrokenAt)
			assert.Equal(t, tt.reason, report.Reason)
		})
	}
}

func ptr(s string) *string { return &s }
