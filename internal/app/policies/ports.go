package policies

import (
	"context"

	"github.com/paulmach/orb"
)

// Actor is the authenticated caller passed explicitly into every operation.
type Actor struct {
	ID      string
	IsAdmin bool
}

// System acts for schedulers and cascades.
var System = Actor{ID: "system", IsAdmin: true}

func (a Actor) Anonymous() bool {
	return a.ID == ""
}

// ImageStore removes listing images by filename.
type ImageStore interface {
	Delete(ctx context.Context, filename string) error
}

// Geocoder resolves a free-text location. found is false when nothing matched.
type Geocoder interface {
	Geocode(ctx context.Context, location, country string) (point orb.Point, found bool, err error)
}

// ViewDeduper is a fast path in front of the repository's unique-viewer set.
// MarkSeen reports whether fingerprint is new for listingID.
type ViewDeduper interface {
	MarkSeen(ctx context.Context, listingID, fingerprint string) (bool, error)
}
