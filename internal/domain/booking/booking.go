package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kodesha/internal/domain/pricing"
	"kodesha/internal/domain/shared/events"
)

var (
	ErrPaymentRequired = errors.New("booking: payment must be captured before approval")
	ErrBookingNotFound = errors.New("booking: not found")
	ErrRenterRequired  = errors.New("booking: renter id required")
	ErrOwnerRequired   = errors.New("booking: owner id required")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Action string

const (
	ActionApprove  Action = "approve"
	ActionActivate Action = "activate"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionDispute  Action = "dispute"
)

// allowedActions maps each status to the actions that may leave it.
// Terminal statuses keep dispute reachable from completed only.
var allowedActions = map[Status][]Action{
	StatusPending:   {ActionApprove, ActionCancel},
	StatusConfirmed: {ActionActivate, ActionCancel},
	StatusActive:    {ActionComplete, ActionDispute},
	StatusCompleted: {ActionDispute},
	StatusCancelled: {},
}

// InvalidTransitionError names the current status, the refused action and the
// actions that would have been legal. Transitions never silently no-op.
type InvalidTransitionError struct {
	Status  Status
	Action  Action
	Allowed []Action
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, a := range e.Allowed {
		allowed[i] = string(a)
	}
	if len(allowed) == 0 {
		return fmt.Sprintf("booking: cannot %s from %s (terminal state)", e.Action, e.Status)
	}
	return fmt.Sprintf("booking: cannot %s from %s (allowed: %s)", e.Action, e.Status, strings.Join(allowed, ", "))
}

// AllowedFrom exposes the legal actions for a status so the presentation
// layer can render valid controls without duplicating the table.
func AllowedFrom(status Status) []Action {
	return append([]Action(nil), allowedActions[status]...)
}

// Booking is the aggregate owning the rental lifecycle. The price breakdown
// is snapshotted at creation so a confirmed price never silently changes.
// Timestamps are metadata only; no transition depends on wall-clock time.
type Booking struct {
	ID              BookingID
	RenterID        string
	OwnerID         string
	Request         pricing.BookingRequest
	Breakdown       pricing.PriceBreakdown
	Status          Status
	Payment         PaymentStatus
	DeliveryAddress string
	Notes           string
	CancelReason    string
	Disputed        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

// Repository persists bookings. Save must reject stale versions so two racing
// transitions cannot both win.
type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	List(ctx context.Context, filter ListFilter) ([]*Booking, error)
}

// ListFilter narrows List results; zero values match everything.
type ListFilter struct {
	Status   Status
	RenterID string
	OwnerID  string
}

type CreateParams struct {
	ID              BookingID
	RenterID        string
	OwnerID         string
	Request         pricing.BookingRequest
	DeliveryAddress string
	Notes           string
	CreatedAt       time.Time
}

// NewBooking validates the request, snapshots its breakdown and starts the
// lifecycle in pending.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.RenterID) == "" {
		return nil, ErrRenterRequired
	}
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, ErrOwnerRequired
	}
	breakdown, err := pricing.ComputeBreakdown(params.Request)
	if err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		RenterID:        params.RenterID,
		OwnerID:         params.OwnerID,
		Request:         params.Request,
		Breakdown:       breakdown,
		Status:          StatusPending,
		Payment:         PaymentPending,
		DeliveryAddress: params.DeliveryAddress,
		Notes:           params.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(BookingCreated{BookingID: b.ID, ProductID: params.Request.ProductID, RenterID: b.RenterID, Total: breakdown.Total, At: now})
	return b, nil
}

// MarkPaid records external payment capture. Capturing twice is harmless.
func (b *Booking) MarkPaid(now time.Time) error {
	if b.Payment == PaymentPaid {
		return nil
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return &InvalidTransitionError{Status: b.Status, Action: "pay", Allowed: allowedActions[b.Status]}
	}
	b.Payment = PaymentPaid
	b.touch(now)
	b.Record(BookingPaid{BookingID: b.ID, Amount: b.Breakdown.Total, At: b.UpdatedAt})
	return nil
}

// Approve moves a paid pending booking to confirmed. Re-approving an already
// confirmed booking is a no-op success because the UI may resubmit.
func (b *Booking) Approve(now time.Time) error {
	if b.Status == StatusConfirmed {
		return nil
	}
	if b.Status != StatusPending {
		return b.refuse(ActionApprove)
	}
	if b.Payment != PaymentPaid {
		return ErrPaymentRequired
	}
	b.Status = StatusConfirmed
	b.touch(now)
	b.Record(BookingApproved{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// Activate marks the handover: the item changed custody.
func (b *Booking) Activate(now time.Time) error {
	if b.Status == StatusActive {
		return nil
	}
	if b.Status != StatusConfirmed {
		return b.refuse(ActionActivate)
	}
	b.Status = StatusActive
	b.touch(now)
	b.Record(BookingActivated{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// Cancel terminates a pending or confirmed booking. A non-empty reason is
// mandatory; payment flips to refunded alongside the escrow refund.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if b.Status == StatusCancelled {
		return nil
	}
	if strings.TrimSpace(reason) == "" {
		return &pricing.InvalidRequestError{Field: "reason", Reason: "cancellation reason required"}
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return b.refuse(ActionCancel)
	}
	b.Status = StatusCancelled
	b.CancelReason = reason
	b.Payment = PaymentRefunded
	b.touch(now)
	b.Record(BookingCancelled{BookingID: b.ID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Complete closes an active booking after confirmed return or delivery.
func (b *Booking) Complete(now time.Time) error {
	if b.Status == StatusCompleted {
		return nil
	}
	if b.Status != StatusActive {
		return b.refuse(ActionComplete)
	}
	b.Status = StatusCompleted
	b.touch(now)
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// RaiseDispute flags the booking without changing its status. Either party
// may raise it while the rental is active or after completion.
func (b *Booking) RaiseDispute(reason string, now time.Time) error {
	if b.Status != StatusActive && b.Status != StatusCompleted {
		return b.refuse(ActionDispute)
	}
	if b.Disputed {
		return nil
	}
	b.Disputed = true
	b.touch(now)
	b.Record(BookingDisputed{BookingID: b.ID, Reason: reason, At: b.UpdatedAt})
	return nil
}

func (b *Booking) refuse(action Action) error {
	return &InvalidTransitionError{Status: b.Status, Action: action, Allowed: allowedActions[b.Status]}
}

func (b *Booking) touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}
