package listings

import (
	"context"

	"wanderlust/internal/app/dto"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/queries"
	"wanderlust/internal/app/services/catalog"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/failure"
)

const (
	getListingKey     = "listings.get"
	searchListingsKey = "listings.search"
	myListingsKey     = "listings.mine"
	adminSearchKey    = "listings.admin.search"
	statsKey          = "listings.admin.stats"
)

type GetListingQuery struct {
	ListingID string `validate:"required"`
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	Catalog *catalog.Service
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.Listing, error) {
	listing, err := h.Catalog.Get(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Listing{}, err
	}
	return dto.MapListing(listing), nil
}

// SearchListingsQuery is the public search. Only approved listings are returned
// unless the caller asks for another status.
type SearchListingsQuery struct {
	Destination string
	Category    string
	Status      string
	Limit       int `validate:"gte=0,lte=100"`
	Offset      int `validate:"gte=0"`
}

func (q SearchListingsQuery) Key() string { return searchListingsKey }

type SearchListingsHandler struct {
	Catalog *catalog.Service
}

func (h *SearchListingsHandler) Handle(ctx context.Context, q SearchListingsQuery) (dto.ListingCollection, error) {
	params := domainlistings.SearchParams{
		Destination: q.Destination,
		Status:      domainlistings.StatusApproved,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if q.Status != "" {
		status, ok := domainlistings.ParseStatus(q.Status)
		if !ok {
			return dto.ListingCollection{}, failure.NewValidation("status", "must be one of pending, approved, rejected")
		}
		params.Status = status
	}
	if q.Category != "" {
		category, ok := domainlistings.ParseCategory(q.Category)
		if !ok {
			return dto.ListingCollection{}, failure.NewValidation("category", "is not a known category")
		}
		params.Category = category
	}
	items, err := h.Catalog.Search(ctx, params)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	return dto.MapListings(items), nil
}

// MyListingsQuery lists the requester's own listings in every status.
type MyListingsQuery struct {
	Actor  policies.Actor
	Status string
	Limit  int `validate:"gte=0,lte=100"`
	Offset int `validate:"gte=0"`
}

func (q MyListingsQuery) Key() string               { return myListingsKey }
func (q MyListingsQuery) Requester() policies.Actor { return q.Actor }

type MyListingsHandler struct {
	Catalog *catalog.Service
}

func (h *MyListingsHandler) Handle(ctx context.Context, q MyListingsQuery) (dto.ListingCollection, error) {
	params := domainlistings.SearchParams{
		OwnerID: q.Actor.ID,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	if q.Status != "" {
		status, ok := domainlistings.ParseStatus(q.Status)
		if !ok {
			return dto.ListingCollection{}, failure.NewValidation("status", "must be one of pending, approved, rejected")
		}
		params.Status = status
	}
	items, err := h.Catalog.Search(ctx, params)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	return dto.MapListings(items), nil
}

type AdminSearchQuery struct {
	Actor    policies.Actor
	Text     string
	Status   string
	Featured *bool
	Limit    int `validate:"gte=0,lte=100"`
	Offset   int `validate:"gte=0"`
}

func (q AdminSearchQuery) Key() string               { return adminSearchKey }
func (q AdminSearchQuery) Requester() policies.Actor { return q.Actor }
func (q AdminSearchQuery) AdminOnly()                {}

type AdminSearchHandler struct {
	Catalog *catalog.Service
}

func (h *AdminSearchHandler) Handle(ctx context.Context, q AdminSearchQuery) (dto.ListingCollection, error) {
	params := domainlistings.SearchParams{
		Text:     q.Text,
		Featured: q.Featured,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Status != "" {
		status, ok := domainlistings.ParseStatus(q.Status)
		if !ok {
			return dto.ListingCollection{}, failure.NewValidation("status", "must be one of pending, approved, rejected")
		}
		params.Status = status
	}
	items, err := h.Catalog.Search(ctx, params)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	return dto.MapListings(items), nil
}

type StatsQuery struct {
	Actor policies.Actor
}

func (q StatsQuery) Key() string               { return statsKey }
func (q StatsQuery) Requester() policies.Actor { return q.Actor }
func (q StatsQuery) AdminOnly()                {}

type StatsHandler struct {
	Catalog *catalog.Service
}

func (h *StatsHandler) Handle(ctx context.Context, q StatsQuery) (dto.Stats, error) {
	stats, err := h.Catalog.Stats(ctx, q.Actor)
	if err != nil {
		return dto.Stats{}, err
	}
	out := dto.Stats{
		Users:              stats.Users,
		Reviews:            stats.Reviews,
		Listings:           stats.Listings.Total,
		PendingListings:    stats.Listings.Pending,
		FeaturedListings:   stats.Listings.Featured,
		ListingsByCategory: make(map[string]int, len(stats.Listings.ByCategory)),
		BookingsByStatus:   make(map[string]int, len(stats.Bookings)),
	}
	for category, n := range stats.Listings.ByCategory {
		out.ListingsByCategory[string(category)] = n
	}
	for status, n := range stats.Bookings {
		out.BookingsByStatus[string(status)] = n
		out.Bookings += n
	}
	return out, nil
}

func RegisterQueries(bus *queries.InMemoryBus, svc *catalog.Service) {
	queries.RegisterHandler(bus, getListingKey, &GetListingHandler{Catalog: svc})
	queries.RegisterHandler(bus, searchListingsKey, &SearchListingsHandler{Catalog: svc})
	queries.RegisterHandler(bus, myListingsKey, &MyListingsHandler{Catalog: svc})
	queries.RegisterHandler(bus, adminSearchKey, &AdminSearchHandler{Catalog: svc})
	queries.RegisterHandler(bus, statsKey, &StatsHandler{Catalog: svc})
}
