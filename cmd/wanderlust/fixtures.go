package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/services/catalog"
	domainlistings "wanderlust/internal/domain/listings"
)

type listingFixture struct {
	Owner    string                `json:"owner"`
	Featured bool                  `json:"featured"`
	Pending  bool                  `json:"pending"`
	Listing  domainlistings.Fields `json:"listing"`
}

// loadListingFixtures seeds demo listings. They are approved unless marked
// pending, so a fresh instance has something to search.
func loadListingFixtures(ctx context.Context, svc *catalog.Service, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(raw, &fixtures); err != nil {
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}
	loaded := 0
	for i, fx := range fixtures {
		owner := strings.TrimSpace(fx.Owner)
		if owner == "" {
			owner = policies.System.ID
		}
		listing, err := svc.Create(ctx, owner, fx.Listing)
		if err != nil {
			return loaded, fmt.Errorf("fixture %d: %w", i, err)
		}
		if !fx.Pending {
			if _, err := svc.SetStatus(ctx, listing.ID, domainlistings.StatusApproved, policies.System); err != nil {
				return loaded, fmt.Errorf("fixture %d: %w", i, err)
			}
		}
		if fx.Featured {
			if _, err := svc.SetFeatured(ctx, listing.ID, true, policies.System); err != nil {
				return loaded, fmt.Errorf("fixture %d: %w", i, err)
			}
		}
		loaded++
	}
	return loaded, nil
}
