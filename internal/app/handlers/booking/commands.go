package booking

import (
	"context"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	"wanderlust/internal/app/middleware"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/services/ledger"
	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/daterange"
)

const (
	requestBookingKey = "booking.request"
	confirmBookingKey = "booking.confirm"
	cancelBookingKey  = "booking.cancel"
	completeDueKey    = "booking.complete_due"
)

type RequestBookingCommand struct {
	Actor           policies.Actor `json:"-"`
	ListingID       string         `json:"listing_id" validate:"required"`
	CheckIn         string         `json:"check_in" validate:"required"`
	CheckOut        string         `json:"check_out" validate:"required"`
	Guests          int            `json:"guests" validate:"gt=0"`
	IdempotencyKeyV string         `json:"-"`
}

func (c RequestBookingCommand) Key() string               { return requestBookingKey }
func (c RequestBookingCommand) Requester() policies.Actor { return c.Actor }

// IdempotencyKey is scoped to the requester so keys cannot collide across users.
func (c RequestBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return requestBookingKey + ":" + c.Actor.ID + ":" + c.IdempotencyKeyV
}

func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

type RequestBookingHandler struct {
	Ledger *ledger.Service
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.Booking, error) {
	dr, err := daterange.Parse(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	booking, err := h.Ledger.Request(ctx, ledger.RequestParams{
		ListingID: domainlistings.ListingID(cmd.ListingID),
		GuestID:   cmd.Actor.ID,
		Range:     dr,
		Guests:    cmd.Guests,
	})
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

type ConfirmBookingCommand struct {
	Actor     policies.Actor `json:"-"`
	BookingID string         `json:"booking_id" validate:"required"`
}

func (c ConfirmBookingCommand) Key() string               { return confirmBookingKey }
func (c ConfirmBookingCommand) Requester() policies.Actor { return c.Actor }

type ConfirmBookingHandler struct {
	Ledger *ledger.Service
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*dto.Booking, error) {
	booking, err := h.Ledger.Confirm(ctx, domainbooking.BookingID(cmd.BookingID), cmd.Actor)
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

type CancelBookingCommand struct {
	Actor     policies.Actor `json:"-"`
	BookingID string         `json:"booking_id" validate:"required"`
	Reason    string         `json:"reason" validate:"max=500"`
}

func (c CancelBookingCommand) Key() string               { return cancelBookingKey }
func (c CancelBookingCommand) Requester() policies.Actor { return c.Actor }

type CancelBookingHandler struct {
	Ledger *ledger.Service
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.Booking, error) {
	booking, err := h.Ledger.Cancel(ctx, domainbooking.BookingID(cmd.BookingID), cmd.Actor, cmd.Reason)
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(booking)
	return &out, nil
}

// CompleteDueCommand is issued by the sweeper, never over HTTP.
type CompleteDueCommand struct{}

func (CompleteDueCommand) Key() string               { return completeDueKey }
func (CompleteDueCommand) Requester() policies.Actor { return policies.System }
func (CompleteDueCommand) AdminOnly()                {}

type CompleteDueResult struct {
	Completed int `json:"completed"`
}

type CompleteDueHandler struct {
	Ledger *ledger.Service
}

func (h *CompleteDueHandler) Handle(ctx context.Context, _ CompleteDueCommand) (*CompleteDueResult, error) {
	n, err := h.Ledger.CompleteDue(ctx)
	return &CompleteDueResult{Completed: n}, err
}

// Register wires every booking command onto bus.
func Register(bus *commands.InMemoryBus, svc *ledger.Service) {
	commands.RegisterHandler(bus, requestBookingKey, &RequestBookingHandler{Ledger: svc})
	commands.RegisterHandler(bus, confirmBookingKey, &ConfirmBookingHandler{Ledger: svc})
	commands.RegisterHandler(bus, cancelBookingKey, &CancelBookingHandler{Ledger: svc})
	commands.RegisterHandler(bus, completeDueKey, &CompleteDueHandler{Ledger: svc})
}

var (
	_ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
	_ middleware.IdempotentCommand                          = RequestBookingCommand{}
	_ middleware.Authenticated                              = ConfirmBookingCommand{}
	_ middleware.AdminOnly                                  = CompleteDueCommand{}
)
