package booking

import (
	"context"

	"wanderlust/internal/app/dto"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/queries"
	"wanderlust/internal/app/services/ledger"
	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
)

const (
	getBookingKey      = "booking.get"
	guestBookingsKey   = "booking.guest.list"
	listingBookingsKey = "booking.listing.list"
)

type GetBookingQuery struct {
	Actor     policies.Actor
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string               { return getBookingKey }
func (q GetBookingQuery) Requester() policies.Actor { return q.Actor }

type GetBookingHandler struct {
	Ledger *ledger.Service
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	booking, err := h.Ledger.Get(ctx, domainbooking.BookingID(q.BookingID), q.Actor)
	if err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(booking), nil
}

// GuestBookingsQuery lists the requester's own bookings, most recent first.
type GuestBookingsQuery struct {
	Actor policies.Actor
}

func (q GuestBookingsQuery) Key() string               { return guestBookingsKey }
func (q GuestBookingsQuery) Requester() policies.Actor { return q.Actor }

type GuestBookingsHandler struct {
	Ledger *ledger.Service
}

func (h *GuestBookingsHandler) Handle(ctx context.Context, q GuestBookingsQuery) (dto.BookingCollection, error) {
	items, err := h.Ledger.ListForGuest(ctx, q.Actor.ID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return dto.MapBookings(items), nil
}

type ListingBookingsQuery struct {
	Actor     policies.Actor
	ListingID string `validate:"required"`
}

func (q ListingBookingsQuery) Key() string               { return listingBookingsKey }
func (q ListingBookingsQuery) Requester() policies.Actor { return q.Actor }

type ListingBookingsHandler struct {
	Ledger *ledger.Service
}

func (h *ListingBookingsHandler) Handle(ctx context.Context, q ListingBookingsQuery) (dto.BookingCollection, error) {
	items, err := h.Ledger.ListForListing(ctx, domainlistings.ListingID(q.ListingID), q.Actor)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return dto.MapBookings(items), nil
}

func RegisterQueries(bus *queries.InMemoryBus, svc *ledger.Service) {
	queries.RegisterHandler(bus, getBookingKey, &GetBookingHandler{Ledger: svc})
	queries.RegisterHandler(bus, guestBookingsKey, &GuestBookingsHandler{Ledger: svc})
	queries.RegisterHandler(bus, listingBookingsKey, &ListingBookingsHandler{Ledger: svc})
}
