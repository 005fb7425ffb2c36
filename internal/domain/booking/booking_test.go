package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kodesha/internal/domain/booking"
	"kodesha/internal/domain/pricing"
	"kodesha/internal/domain/shared/daterange"
	"kodesha/internal/domain/shared/money"
)

var testNow = time.Date(2024, 2, 9, 12, 0, 0, 0, time.UTC)

func newTestBooking(t *testing.T) *booking.Booking {
	t.Helper()
	period, err := daterange.New(
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	b, err := booking.NewBooking(booking.CreateParams{
		ID:       "bk-1",
		RenterID: "renter-1",
		OwnerID:  "owner-1",
		Request: pricing.BookingRequest{
			ProductID: "prod-1",
			Mode:      pricing.ModeRent,
			UnitPrice: money.RWF(50000),
			Period:    period,
		},
		CreatedAt: testNow,
	})
	require.NoError(t, err)
	return b
}

func TestNewBooking(t *testing.T) {
	b := newTestBooking(t)

	assert.Equal(t, booking.StatusPending, b.Status)
	assert.Equal(t, booking.PaymentPending, b.Payment)
	assert.Equal(t, money.RWF(165000), b.Breakdown.Total, "breakdown is snapshotted at creation")

	events := b.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "booking.created", events[0].EventName())
}

func TestNewBookingRequiresParties(t *testing.T) {
	period, err := daterange.New(
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	req := pricing.BookingRequest{
		ProductID: "prod-1",
		Mode:      pricing.ModeRent,
		UnitPrice: money.RWF(50000),
		Period:    period,
	}

	_, err = booking.NewBooking(booking.CreateParams{ID: "bk-1", OwnerID: "owner-1", Request: req, CreatedAt: testNow})
	assert.ErrorIs(t, err, booking.ErrRenterRequired)

	_, err = booking.NewBooking(booking.CreateParams{ID: "bk-1", RenterID: "renter-1", Request: req, CreatedAt: testNow})
	assert.ErrorIs(t, err, booking.ErrOwnerRequired)
}

func TestApproveRequiresPayment(t *testing.T) {
	b := newTestBooking(t)

	err := b.Approve(testNow)
	assert.ErrorIs(t, err, booking.ErrPaymentRequired)
	assert.Equal(t, booking.StatusPending, b.Status)

	require.NoError(t, b.MarkPaid(testNow))
	require.NoError(t, b.Approve(testNow))
	assert.Equal(t, booking.StatusConfirmed, b.Status)
}

func TestFullLifecycle(t *testing.T) {
	b := newTestBooking(t)

	require.NoError(t, b.MarkPaid(testNow))
	require.NoError(t, b.Approve(testNow))
	require.NoError(t, b.Activate(testNow))
	require.NoError(t, b.Complete(testNow))

	assert.Equal(t, booking.StatusCompleted, b.Status)

	names := make([]string, 0)
	for _, ev := range b.PendingEvents() {
		names = append(names, ev.EventName())
	}
	assert.Equal(t, []string{
		"booking.created",
		"booking.paid",
		"booking.approved",
		"booking.activated",
		"booking.completed",
	}, names)
}

func TestIdempotentReplays(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.MarkPaid(testNow))
	require.NoError(t, b.Approve(testNow))
	b.ClearEvents()

	t.Run("re-approve confirmed", func(t *testing.T) {
		require.NoError(t, b.Approve(testNow))
		assert.Equal(t, booking.StatusConfirmed, b.Status)
		assert.Empty(t, b.PendingEvents(), "replays must not duplicate events")
	})

	t.Run("re-activate active", func(t *testing.T) {
		require.NoError(t, b.Activate(testNow))
		b.ClearEvents()
		require.NoError(t, b.Activate(testNow))
		assert.Empty(t, b.PendingEvents())
	})

	t.Run("re-complete completed", func(t *testing.T) {
		require.NoError(t, b.Complete(testNow))
		b.ClearEvents()
		require.NoError(t, b.Complete(testNow))
		assert.Empty(t, b.PendingEvents())
	})
}

func TestIllegalTransitions(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(t *testing.T, b *booking.Booking)
		act     func(b *booking.Booking) error
		from    booking.Status
		action  booking.Action
	}{
		{
			name:    "activate from pending",
			prepare: func(t *testing.T, b *booking.Booking) {},
			act:     func(b *booking.Booking) error { return b.Activate(testNow) },
			from:    booking.StatusPending,
			action:  booking.ActionActivate,
		},
		{
			name:    "complete from pending",
			prepare: func(t *testing.T, b *booking.Booking) {},
			act:     func(b *booking.Booking) error { return b.Complete(testNow) },
			from:    booking.StatusPending,
			action:  booking.ActionComplete,
		},
		{
			name: "cancel from active",
			prepare: func(t *testing.T, b *booking.Booking) {
				require.NoError(t, b.MarkPaid(testNow))
				require.NoError(t, b.Approve(testNow))
				require.NoError(t, b.Activate(testNow))
			},
			act:    func(b *booking.Booking) error { return b.Cancel("changed my mind", testNow) },
			from:   booking.StatusActive,
			action: booking.ActionCancel,
		},
		{
			name: "approve from cancelled",
			prepare: func(t *testing.T, b *booking.Booking) {
				require.NoError(t, b.MarkPaid(testNow))
				require.NoError(t, b.Cancel("out of stock", testNow))
			},
			act:    func(b *booking.Booking) error { return b.Approve(testNow) },
			from:   booking.StatusCancelled,
			action: booking.ActionApprove,
		},
		{
			name:    "dispute from pending",
			prepare: func(t *testing.T, b *booking.Booking) {},
			act:     func(b *booking.Booking) error { return b.RaiseDispute("broken", testNow) },
			from:    booking.StatusPending,
			action:  booking.ActionDispute,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBooking(t)
			tc.prepare(t, b)
			before := b.Status

			err := tc.act(b)

			var transitionErr *booking.InvalidTransitionError
			require.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, tc.from, transitionErr.Status)
			assert.Equal(t, tc.action, transitionErr.Action)
			assert.Equal(t, before, b.Status, "refused action must not mutate state")
		})
	}
}

func TestCancelRequiresReason(t *testing.T) {
	b := newTestBooking(t)

	err := b.Cancel("  ", testNow)
	var reqErr *pricing.InvalidRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "reason", reqErr.Field)
	assert.Equal(t, booking.StatusPending, b.Status)
}

func TestCancelRefundsPayment(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.MarkPaid(testNow))

	require.NoError(t, b.Cancel("renter asked", testNow))
	assert.Equal(t, booking.StatusCancelled, b.Status)
	assert.Equal(t, booking.PaymentRefunded, b.Payment)
	assert.Equal(t, "renter asked", b.CancelReason)
}

func TestDisputeKeepsStatus(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.MarkPaid(testNow))
	require.NoError(t, b.Approve(testNow))
	require.NoError(t, b.Activate(testNow))

	require.NoError(t, b.RaiseDispute("item damaged", testNow))
	assert.True(t, b.Disputed)
	assert.Equal(t, booking.StatusActive, b.Status, "dispute flags the booking without changing the lifecycle")

	// Dispute is still possible after completion.
	b2 := newTestBooking(t)
	require.NoError(t, b2.MarkPaid(testNow))
	require.NoError(t, b2.Approve(testNow))
	require.NoError(t, b2.Activate(testNow))
	require.NoError(t, b2.Complete(testNow))
	require.NoError(t, b2.RaiseDispute("never returned deposit", testNow))
	assert.True(t, b2.Disputed)
}

func TestAllowedFrom(t *testing.T) {
	assert.ElementsMatch(t, []booking.Action{booking.ActionApprove, booking.ActionCancel}, booking.AllowedFrom(booking.StatusPending))
	assert.ElementsMatch(t, []booking.Action{booking.ActionActivate, booking.ActionCancel}, booking.AllowedFrom(booking.StatusConfirmed))
	assert.ElementsMatch(t, []booking.Action{booking.ActionComplete, booking.ActionDispute}, booking.AllowedFrom(booking.StatusActive))
	assert.ElementsMatch(t, []booking.Action{booking.ActionDispute}, booking.AllowedFrom(booking.StatusCompleted))
	assert.Empty(t, booking.AllowedFrom(booking.StatusCancelled))
}
