package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	bookingapp "wanderlust/internal/app/handlers/booking"
	"wanderlust/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ListingID string `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Guests    int    `json:"guests"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req createBookingRequest
	if !bindJSON(c, &req, false) {
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		Actor:           p.Actor(),
		ListingID:       req.ListingID,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Guests:          req.Guests,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	}
	booking, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{Actor: p.Actor(), BookingID: c.Param("id")}
	booking, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req cancelBookingRequest
	if !bindJSON(c, &req, true) {
		return
	}
	cmd := bookingapp.CancelBookingCommand{Actor: p.Actor(), BookingID: c.Param("id"), Reason: strings.TrimSpace(req.Reason)}
	booking, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h BookingHandler) Get(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	q := bookingapp.GetBookingQuery{Actor: p.Actor(), BookingID: c.Param("id")}
	booking, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ForListing lists bookings of one listing; owners and admins only.
func (h BookingHandler) ForListing(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	q := bookingapp.ListingBookingsQuery{Actor: p.Actor(), ListingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.ListingBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Mine(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	result, err := queries.Ask[bookingapp.GuestBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, bookingapp.GuestBookingsQuery{Actor: p.Actor()})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
