package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "wanderlust/internal/domain/availability"
	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/pricing"
	"wanderlust/internal/domain/shared/daterange"
	"wanderlust/internal/domain/shared/money"
)

const bookingsCollection = "bookings"

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, translate("bookings.by_id", err, domainbooking.ErrNotFound, nil)
	}
	return doc.toDomain(), nil
}

// Save upserts on (_id, version). A stale version misses the filter and the
// upsert collides with the existing _id, which surfaces as a concurrent update.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	prevVersion := b.Version
	doc := newBookingDocument(b)
	doc.Version = prevVersion + 1
	filter := bson.M{"_id": doc.ID, "version": prevVersion}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return translate("bookings.save", err, nil, domainbooking.ErrConcurrentUpdate)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, "bookings.by_guest", bson.M{"guest_id": guestID})
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, "bookings.by_listing", bson.M{"listing_id": string(listingID)})
}

func (r *BookingRepository) ListDue(ctx context.Context, day time.Time) ([]*domainbooking.Booking, error) {
	return r.find(ctx, "bookings.due", bson.M{
		"status":    string(domainbooking.StatusConfirmed),
		"check_out": bson.M{"$lte": daterange.Day(day)},
	})
}

func (r *BookingRepository) CountByStatus(ctx context.Context) (map[domainbooking.Status]int, error) {
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, translate("bookings.count", err, nil, nil)
	}
	var rows []struct {
		Status string `bson:"_id"`
		N      int    `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, translate("bookings.count", err, nil, nil)
	}
	out := make(map[domainbooking.Status]int, len(domainbooking.Statuses))
	for _, s := range domainbooking.Statuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[domainbooking.Status(row.Status)] = row.N
	}
	return out, nil
}

func (r *BookingRepository) find(ctx context.Context, op string, filter bson.M) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, translate(op, err, nil, nil)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(op, err, nil, nil)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

type bookingDocument struct {
	ID           string        `bson:"_id"`
	ListingID    string        `bson:"listing_id"`
	ListingTitle string        `bson:"listing_title"`
	OwnerID      string        `bson:"owner_id"`
	GuestID      string        `bson:"guest_id"`
	CheckIn      time.Time     `bson:"check_in"`
	CheckOut     time.Time     `bson:"check_out"`
	Guests       int           `bson:"guests"`
	Nightly      moneyDocument `bson:"nightly"`
	Nights       int           `bson:"nights"`
	Total        moneyDocument `bson:"total"`
	Status       string        `bson:"status"`
	Token        string        `bson:"token"`
	CancelledBy  string        `bson:"cancelled_by,omitempty"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
	Version      int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:           string(b.ID),
		ListingID:    string(b.ListingID),
		ListingTitle: b.ListingTitle,
		OwnerID:      b.OwnerID,
		GuestID:      b.GuestID,
		CheckIn:      b.Range.CheckIn.UTC(),
		CheckOut:     b.Range.CheckOut.UTC(),
		Guests:       b.Guests,
		Nightly:      moneyDocument{Amount: b.Price.Nightly.Amount, Currency: b.Price.Nightly.Currency},
		Nights:       b.Price.Nights,
		Total:        moneyDocument{Amount: b.Price.Total.Amount, Currency: b.Price.Total.Currency},
		Status:       string(b.Status),
		Token:        string(b.Token),
		CancelledBy:  b.CancelledBy,
		CreatedAt:    b.CreatedAt.UTC(),
		UpdatedAt:    b.UpdatedAt.UTC(),
		Version:      b.Version,
	}
}

func (d bookingDocument) toDomain() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:           domainbooking.BookingID(d.ID),
		ListingID:    domainlistings.ListingID(d.ListingID),
		ListingTitle: d.ListingTitle,
		OwnerID:      d.OwnerID,
		GuestID:      d.GuestID,
		Range:        daterange.DateRange{CheckIn: d.CheckIn.UTC(), CheckOut: d.CheckOut.UTC()},
		Guests:       d.Guests,
		Price: pricing.Quote{
			Nightly: money.Money{Amount: d.Nightly.Amount, Currency: d.Nightly.Currency},
			Nights:  d.Nights,
			Total:   money.Money{Amount: d.Total.Amount, Currency: d.Total.Currency},
		},
		Status:      domainbooking.Status(d.Status),
		Token:       domainavailability.ReservationToken(d.Token),
		CancelledBy: d.CancelledBy,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		Version:     d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
