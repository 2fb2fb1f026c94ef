package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "wanderlust/internal/domain/availability"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/daterange"
)

const availabilityCollection = "availability"

// AvailabilityRepository keeps one document per listing holding every
// reservation, so a single versioned write decides between competing holds.
type AvailabilityRepository struct {
	col *mongo.Collection
}

func NewAvailabilityRepository(db *mongo.Database) *AvailabilityRepository {
	return &AvailabilityRepository{col: db.Collection(availabilityCollection)}
}

func (r *AvailabilityRepository) Record(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Record, error) {
	var doc availabilityDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domainavailability.NewRecord(id), nil
	}
	if err != nil {
		return nil, translate("availability.record", err, nil, nil)
	}
	return doc.toDomain(), nil
}

func (r *AvailabilityRepository) Save(ctx context.Context, rec *domainavailability.Record) error {
	prevVersion := rec.Version
	doc := newAvailabilityDocument(rec)
	doc.Version = prevVersion + 1
	filter := bson.M{"_id": doc.ListingID, "version": prevVersion}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return translate("availability.save", err, nil, domainavailability.ErrConcurrentUpdate)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainavailability.ErrConcurrentUpdate
	}
	rec.Version = doc.Version
	return nil
}

func (r *AvailabilityRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)}); err != nil {
		return translate("availability.delete", err, nil, nil)
	}
	return nil
}

type holdDocument struct {
	Token     string    `bson:"token"`
	CheckIn   time.Time `bson:"check_in"`
	CheckOut  time.Time `bson:"check_out"`
	CreatedAt time.Time `bson:"created_at"`
}

type availabilityDocument struct {
	ListingID string         `bson:"_id"`
	Holds     []holdDocument `bson:"holds"`
	Closed    bool           `bson:"closed"`
	Version   int64          `bson:"version"`
}

func newAvailabilityDocument(rec *domainavailability.Record) availabilityDocument {
	doc := availabilityDocument{
		ListingID: string(rec.ListingID),
		Holds:     make([]holdDocument, 0, len(rec.Holds)),
		Closed:    rec.Closed,
		Version:   rec.Version,
	}
	for _, h := range rec.Holds {
		doc.Holds = append(doc.Holds, holdDocument{
			Token:     string(h.Token),
			CheckIn:   h.Range.CheckIn.UTC(),
			CheckOut:  h.Range.CheckOut.UTC(),
			CreatedAt: h.CreatedAt.UTC(),
		})
	}
	return doc
}

func (d availabilityDocument) toDomain() *domainavailability.Record {
	rec := &domainavailability.Record{
		ListingID: domainlistings.ListingID(d.ListingID),
		Holds:     make([]domainavailability.Hold, 0, len(d.Holds)),
		Closed:    d.Closed,
		Version:   d.Version,
	}
	for _, h := range d.Holds {
		rec.Holds = append(rec.Holds, domainavailability.Hold{
			Token:     domainavailability.ReservationToken(h.Token),
			Range:     daterange.DateRange{CheckIn: h.CheckIn.UTC(), CheckOut: h.CheckOut.UTC()},
			CreatedAt: h.CreatedAt.UTC(),
		})
	}
	return rec
}

var _ domainavailability.Repository = (*AvailabilityRepository)(nil)
