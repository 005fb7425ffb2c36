package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kodesha/internal/app/commands"
	"kodesha/internal/app/dto"
	bookingapp "kodesha/internal/app/handlers/booking"
	"kodesha/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type quoteRequest struct {
	ProductID string    `json:"product_id"`
	Mode      string    `json:"mode"`
	UnitPrice int64     `json:"unit_price"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Deposit   int64     `json:"deposit"`
	FeeRate   float64   `json:"fee_rate"`
}

func (h BookingHandler) Quote(c *gin.Context) {
	if h.Queries == nil {
		respondError(c, h.Logger, errors.New("queries bus unavailable"))
		return
	}
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query := bookingapp.QuoteQuery{
		ProductID: req.ProductID,
		Mode:      req.Mode,
		UnitPrice: req.UnitPrice,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Deposit:   req.Deposit,
		FeeRate:   req.FeeRate,
	}
	result, err := queries.Ask[bookingapp.QuoteQuery, dto.BreakdownDTO](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type createBookingRequest struct {
	ProductID       string    `json:"product_id"`
	OwnerID         string    `json:"owner_id"`
	Mode            string    `json:"mode"`
	UnitPrice       int64     `json:"unit_price"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	Deposit         int64     `json:"deposit"`
	DeliveryAddress string    `json:"delivery_address"`
	Notes           string    `json:"notes"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errors.New("commands bus unavailable"))
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		CommandID:       uuid.NewString(),
		ProductID:       req.ProductID,
		RenterID:        user,
		OwnerID:         req.OwnerID,
		Mode:            req.Mode,
		UnitPrice:       req.UnitPrice,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Deposit:         req.Deposit,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) List(c *gin.Context) {
	if h.Queries == nil {
		respondError(c, h.Logger, errors.New("queries bus unavailable"))
		return
	}
	query := bookingapp.ListBookingsQuery{
		Status:   c.Query("status"),
		RenterID: c.Query("renter_id"),
		OwnerID:  c.Query("owner_id"),
	}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		respondError(c, h.Logger, errors.New("queries bus unavailable"))
		return
	}
	query := bookingapp.GetBookingQuery{BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingView](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Pay(c *gin.Context) {
	if h.Commands == nil {
		respondError(c, h.Logger, errors.New("commands bus unavailable"))
		return
	}
	cmd := bookingapp.MarkPaidCommand{BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[bookingapp.MarkPaidCommand, *bookingapp.MarkPaidResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type transitionRequest struct {
	Reason string `json:"reason"`
}

// Transition builds one route handler per lifecycle action; the action is
// part of the route, not the payload.
func (h BookingHandler) Transition(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		if h.Commands == nil {
			respondError(c, h.Logger, errors.New("commands bus unavailable"))
			return
		}
		var req transitionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		cmd := bookingapp.TransitionBookingCommand{
			BookingID: strings.TrimSpace(c.Param("id")),
			Action:    action,
			Reason:    strings.TrimSpace(req.Reason),
			ActorID:   user,
		}
		result, err := commands.Dispatch[bookingapp.TransitionBookingCommand, *bookingapp.TransitionBookingResult](c.Request.Context(), h.Commands, cmd)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
}

func (h BookingHandler) Resolve(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errors.New("commands bus unavailable"))
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.ResolveDisputeCommand{
		BookingID:  strings.TrimSpace(c.Param("id")),
		Resolution: strings.TrimSpace(req.Resolution),
		AdminID:    user,
	}
	result, err := commands.Dispatch[bookingapp.ResolveDisputeCommand, *bookingapp.ResolveDisputeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Escrow(c *gin.Context) {
	if h.Queries == nil {
		respondError(c, h.Logger, errors.New("queries bus unavailable"))
		return
	}
	query := bookingapp.GetEscrowQuery{BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[bookingapp.GetEscrowQuery, dto.EscrowView](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
