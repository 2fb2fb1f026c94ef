package dto

type Stats struct {
	Users              int            `json:"users"`
	Reviews            int            `json:"reviews"`
	Listings           int            `json:"listings"`
	PendingListings    int            `json:"pending_listings"`
	FeaturedListings   int            `json:"featured_listings"`
	ListingsByCategory map[string]int `json:"listings_by_category"`
	Bookings           int            `json:"bookings"`
	BookingsByStatus   map[string]int `json:"bookings_by_status"`
}
