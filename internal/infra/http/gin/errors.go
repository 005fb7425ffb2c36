package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "kodesha/internal/app/handlers/booking"
	walletapp "kodesha/internal/app/handlers/wallet"
	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
	domainpricing "kodesha/internal/domain/pricing"
	domainrange "kodesha/internal/domain/shared/daterange"
	"kodesha/internal/domain/shared/money"
	domainwallet "kodesha/internal/domain/wallet"
	dbmongo "kodesha/internal/infra/db/mongo"
	memstorage "kodesha/internal/infra/storage/memory"
)

// statusFor translates domain failures into HTTP codes. Illegal transitions
// and stale versions are conflicts, not client formatting mistakes.
func statusFor(err error) int {
	var transitionErr *domainbooking.InvalidTransitionError
	var stateErr *domainescrow.StateError
	var requestErr *domainpricing.InvalidRequestError
	var minimumErr *domainwallet.BelowMinimumError
	switch {
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainescrow.ErrRecordNotFound),
		errors.Is(err, domainwallet.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.As(err, &transitionErr),
		errors.As(err, &stateErr),
		errors.Is(err, domainbooking.ErrPaymentRequired),
		errors.Is(err, domainwallet.ErrInsufficientBalance),
		errors.Is(err, memstorage.ErrConcurrentUpdate),
		errors.Is(err, dbmongo.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.As(err, &requestErr),
		errors.As(err, &minimumErr),
		errors.Is(err, domainrange.ErrInvalidRange),
		errors.Is(err, money.ErrCurrencyMismatch),
		errors.Is(err, domainwallet.ErrInvalidAmount),
		errors.Is(err, domainwallet.ErrPhoneRequired),
		errors.Is(err, domainwallet.ErrUnknownPaymentMethod),
		errors.Is(err, domainbooking.ErrRenterRequired),
		errors.Is(err, domainbooking.ErrOwnerRequired),
		errors.Is(err, bookingapp.ErrUnknownAction),
		errors.Is(err, bookingapp.ErrUnknownResolution):
		return http.StatusBadRequest
	case errors.Is(err, walletapp.ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log *slog.Logger, err error) {
	status := statusFor(err)
	if log != nil && status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id"))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
