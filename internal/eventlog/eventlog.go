// Package eventlog encodes audit payloads and maintains the hash chain that
// makes the event log tamper-evident.
//
// Each event hash covers the event's own fields and the hash of its
// predecessor, so editing, deleting or reordering any stored event breaks
// verification from that point on.
package eventlog

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/blake2b"

	"care-inventory-backend/internal/domain"
)

var (
	// ErrInvalidPayload is returned when event data is not a JSON object.
	ErrInvalidPayload = errors.New("event payload is not valid json")

	// ErrUnknownEventType is returned for types outside the closed vocabulary.
	ErrUnknownEventType = errors.New("unknown event type")
)

// Encode marshals a payload struct into the stored JSON form.
func Encode(payload any) (json.RawMessage, error) {
	data, err := jsoniter.ConfigFastest.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode event payload: %w", err)
	}
	return data, nil
}

// Decode unmarshals stored event data into v.
func Decode(data json.RawMessage, v any) error {
	if err := jsoniter.ConfigFastest.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}
	return nil
}

// Validate checks the type and payload of an event before it is sealed.
func Validate(e *domain.Event) error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	if len(e.Data) == 0 || e.Data[0] != '{' || !jsoniter.ConfigFastest.Valid(e.Data) {
		return ErrInvalidPayload
	}
	return nil
}

// Normalize truncates a timestamp to the precision kept by the store so that
// hashes computed before and after a round trip agree.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Seal links e to its predecessor and computes its hash.
func Seal(e *domain.Event, prevSeq int64, prevHash string) error {
	if err := Validate(e); err != nil {
		return err
	}
	e.Sequence = prevSeq + 1
	e.CreatedAt = Normalize(e.CreatedAt)
	e.PrevHash = prevHash
	e.Hash = Hash(e)
	return nil
}

// Hash computes the chain hash of e. Every field is length-prefixed so that
// no two distinct events share an input.
func Hash(e *domain.Event) string {
	h, _ := blake2b.New256(nil)
	write := func(s string) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}

	write(e.ID)
	write(strconv.FormatInt(e.Sequence, 10))
	write(string(e.Type))
	write(string(e.Data))
	write(Normalize(e.CreatedAt).Format(time.RFC3339Nano))
	write(deref(e.LoanID))
	write(deref(e.UserID))
	write(e.PrevHash)

	return hex.EncodeToString(h.Sum(nil))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ChainError describes the first event that fails verification.
type ChainError struct {
	Sequence int64
	Reason   string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("event chain broken at sequence %d: %s", e.Sequence, e.Reason)
}

// Verifier checks events fed to it in ascending sequence order.
type Verifier struct {
	lastSeq  int64
	lastHash string
	checked  int64
}

// Check verifies e against the previously checked event.
func (v *Verifier) Check(e *domain.Event) error {
	switch {
	case e.Sequence != v.lastSeq+1:
		return &ChainError{Sequence: e.Sequence, Reason: fmt.Sprintf("expected sequence %d", v.lastSeq+1)}
	case e.PrevHash != v.lastHash:
		return &ChainError{Sequence: e.Sequence, Reason: "previous hash mismatch"}
	case Hash(e) != e.Hash:
		return &ChainError{Sequence: e.Sequence, Reason: "hash mismatch"}
	}
	v.lastSeq = e.Sequence
	v.lastHash = e.Hash
	v.checked++
	return nil
}

// Report summarizes the verification so far. A non-nil err marks the chain broken.
func (v *Verifier) Report(err error) domain.ChainReport {
	report := domain.ChainReport{
		Checked:      v.checked,
		Valid:        err == nil,
		HeadSequence: v.lastSeq,
		HeadHash:     v.lastHash,
	}
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		report.BrokenAt = chainErr.Sequence
		report.Reason = chainErr.Reason
	}
	return report
}
