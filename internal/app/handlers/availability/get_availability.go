package availability

import (
	"context"
	"time"

	"wanderlust/internal/app/dto"
	"wanderlust/internal/app/queries"
	availabilitysvc "wanderlust/internal/app/services/availability"
	"wanderlust/internal/app/services/catalog"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/daterange"
)

const (
	getAvailabilityKey = "availability.get"
	defaultWindow      = 90 * 24 * time.Hour
	maxWindow          = 366 * 24 * time.Hour
)

// GetAvailabilityQuery returns the reserved ranges in [From, To). Empty bounds
// default to the next 90 days.
type GetAvailabilityQuery struct {
	ListingID string `validate:"required"`
	From      string
	To        string
}

func (q GetAvailabilityQuery) Key() string { return getAvailabilityKey }

type GetAvailabilityHandler struct {
	Catalog      *catalog.Service
	Availability *availabilitysvc.Service
	Clock        func() time.Time
}

func (h *GetAvailabilityHandler) Handle(ctx context.Context, q GetAvailabilityQuery) (dto.Availability, error) {
	window, err := h.window(q)
	if err != nil {
		return dto.Availability{}, err
	}
	listingID := domainlistings.ListingID(q.ListingID)
	if _, err := h.Catalog.Get(ctx, listingID); err != nil {
		return dto.Availability{}, err
	}
	reserved, err := h.Availability.Reserved(ctx, listingID, window)
	if err != nil {
		return dto.Availability{}, err
	}
	return dto.MapAvailability(q.ListingID, window, reserved), nil
}

func (h *GetAvailabilityHandler) window(q GetAvailabilityQuery) (daterange.DateRange, error) {
	now := time.Now()
	if h.Clock != nil {
		now = h.Clock()
	}
	from := daterange.Day(now).Format(time.DateOnly)
	if q.From != "" {
		from = q.From
	}
	to := q.To
	if to == "" {
		start, err := time.Parse(time.DateOnly, from)
		if err != nil {
			start = daterange.Day(now)
		}
		to = start.Add(defaultWindow).Format(time.DateOnly)
	}
	window, err := daterange.Parse(from, to)
	if err != nil {
		return daterange.DateRange{}, err
	}
	if window.CheckOut.Sub(window.CheckIn) > maxWindow {
		window.CheckOut = window.CheckIn.Add(maxWindow)
	}
	return window, nil
}

func RegisterQueries(bus *queries.InMemoryBus, catalogSvc *catalog.Service, availability *availabilitysvc.Service) {
	queries.RegisterHandler(bus, getAvailabilityKey, &GetAvailabilityHandler{Catalog: catalogSvc, Availability: availability})
}
