package uow

import (
	"context"

	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	domainreviews "wanderlust/internal/domain/reviews"
	domainuser "wanderlust/internal/domain/user"
)

// UnitOfWork groups the repositories one operation writes through.
// Availability records are deliberately absent: reservations are guarded by the
// availability service and compensated by the ledger.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Bookings() domainbooking.Repository
	Reviews() domainreviews.Repository
	Users() domainuser.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
