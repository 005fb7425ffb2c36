package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kodesha/internal/domain/booking"
	"kodesha/internal/domain/shared/money"
)

var ErrRecordNotFound = errors.New("escrow: record not found")

type Stage string

const (
	StagePending  Stage = "pending"
	StageLocked   Stage = "locked"
	StageReleased Stage = "released"
	StageRefunded Stage = "refunded"
	StageDisputed Stage = "disputed"
)

// StateError reports an escrow operation attempted from an incompatible
// stage. It usually means a stale client or a concurrency bug, so callers
// should log it rather than retry blindly.
type StateError struct {
	BookingID booking.BookingID
	Stage     Stage
	Op        string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("escrow: cannot %s booking %s funds from stage %s", e.Op, e.BookingID, e.Stage)
}

// Record tracks held funds for exactly one booking. Its stage moves only
// through booking lifecycle transitions; nothing else mutates it.
type Record struct {
	BookingID booking.BookingID
	Amount    money.Money
	Stage     Stage
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

type Repository interface {
	ByBookingID(ctx context.Context, id booking.BookingID) (*Record, error)
	Save(ctx context.Context, rec *Record) error
}

// NewRecord opens an escrow entry for the booking total.
func NewRecord(id booking.BookingID, amount money.Money, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		BookingID: id,
		Amount:    amount,
		Stage:     StagePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Lock holds the renter's funds at handover. Locking an already locked
// record is a no-op so replayed activations stay idempotent.
func (r *Record) Lock(now time.Time) error {
	if r.Stage == StageLocked {
		return nil
	}
	if r.Stage != StagePending {
		return r.fail("lock")
	}
	r.Stage = StageLocked
	r.touch(now)
	return nil
}

// Release pays the held funds out to the seller. Valid only from locked;
// anything else is a double-payout guard violation.
func (r *Record) Release(now time.Time) error {
	if r.Stage != StageLocked {
		return r.fail("release")
	}
	r.Stage = StageReleased
	r.touch(now)
	return nil
}

// Refund returns the funds to the renter. Released funds can never be
// refunded: they already left the platform.
func (r *Record) Refund(now time.Time) error {
	switch r.Stage {
	case StagePending, StageLocked, StageDisputed:
	default:
		return r.fail("refund")
	}
	r.Stage = StageRefunded
	r.touch(now)
	return nil
}

// MarkDisputed freezes release and refund until dispute resolution calls one
// of them explicitly. Re-marking a disputed record is a no-op.
func (r *Record) MarkDisputed(now time.Time) error {
	if r.Stage == StageDisputed {
		return nil
	}
	if r.Stage != StageLocked {
		return r.fail("dispute")
	}
	r.Stage = StageDisputed
	r.touch(now)
	return nil
}

// ResolveRelease closes a dispute in the seller's favor.
func (r *Record) ResolveRelease(now time.Time) error {
	if r.Stage != StageDisputed {
		return r.fail("resolve-release")
	}
	r.Stage = StageReleased
	r.touch(now)
	return nil
}

func (r *Record) fail(op string) error {
	return &StateError{BookingID: r.BookingID, Stage: r.Stage, Op: op}
}

func (r *Record) touch(now time.Time) {
	r.UpdatedAt = now.UTC()
}
