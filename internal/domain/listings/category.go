package listings

import "strings"

type Category string

const (
	CategoryMansion   Category = "Mansion"
	CategoryFarm      Category = "Farm"
	CategoryLake      Category = "Lake"
	CategoryBeach     Category = "Beach"
	CategoryApartment Category = "Apartment"
	CategorySkiResort Category = "Ski Resort"
	CategoryCamping   Category = "Camping"
	CategoryCottage   Category = "Cottage"
	CategoryLuxury    Category = "Luxury"
)

var Categories = []Category{
	CategoryMansion,
	CategoryFarm,
	CategoryLake,
	CategoryBeach,
	CategoryApartment,
	CategorySkiResort,
	CategoryCamping,
	CategoryCottage,
	CategoryLuxury,
}

// ParseCategory matches case-insensitively and returns the canonical spelling.
func ParseCategory(raw string) (Category, bool) {
	raw = strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(string(c), raw) {
			return c, true
		}
	}
	return "", false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	default:
		return "", false
	}
}
