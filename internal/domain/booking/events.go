package booking

import (
	"time"

	"kodesha/internal/domain/shared/money"
)

type BookingCreated struct {
	BookingID BookingID
	ProductID string
	RenterID  string
	Total     money.Money
	At        time.Time
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingPaid struct {
	BookingID BookingID
	Amount    money.Money
	At        time.Time
}

func (e BookingPaid) EventName() string     { return "booking.paid" }
func (e BookingPaid) AggregateID() string   { return string(e.BookingID) }
func (e BookingPaid) OccurredAt() time.Time { return e.At }

type BookingApproved struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingApproved) EventName() string     { return "booking.approved" }
func (e BookingApproved) AggregateID() string   { return string(e.BookingID) }
func (e BookingApproved) OccurredAt() time.Time { return e.At }

type BookingActivated struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingActivated) EventName() string     { return "booking.activated" }
func (e BookingActivated) AggregateID() string   { return string(e.BookingID) }
func (e BookingActivated) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	Reason    string
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type BookingDisputed struct {
	BookingID BookingID
	Reason    string
	At        time.Time
}

func (e BookingDisputed) EventName() string     { return "booking.disputed" }
func (e BookingDisputed) AggregateID() string   { return string(e.BookingID) }
func (e BookingDisputed) OccurredAt() time.Time { return e.At }
