package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"wanderlust/internal/app/uow"
	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	domainreviews "wanderlust/internal/domain/reviews"
	domainuser "wanderlust/internal/domain/user"
	"wanderlust/internal/domain/shared/failure"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB           *mongo.Database
	Transactions bool

	ListingsRepo domainlistings.Repository
	BookingsRepo domainbooking.Repository
	ReviewsRepo  domainreviews.Repository
	UsersRepo    domainuser.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. Without transaction support the
// unit only scopes repositories; every write is applied immediately.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	unit := &Unit{factory: f}
	if !f.Transactions || opts.ReadOnly {
		return unit, nil
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, failure.Storage("mongo: start session", err)
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, failure.Storage("mongo: start transaction", err)
	}
	unit.session = session
	return unit, nil
}

type Unit struct {
	factory Factory
	session mongo.Session
}

func (u *Unit) Listings() domainlistings.Repository { return u.factory.ListingsRepo }
func (u *Unit) Bookings() domainbooking.Repository  { return u.factory.BookingsRepo }
func (u *Unit) Reviews() domainreviews.Repository   { return u.factory.ReviewsRepo }
func (u *Unit) Users() domainuser.Repository        { return u.factory.UsersRepo }

func (u *Unit) Commit(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		return translate("commit", err, nil, nil)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	if u.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
