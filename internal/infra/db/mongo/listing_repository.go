package mongo

import (
	"context"
	"regexp"
	"time"

	"github.com/paulmach/orb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/money"
)

const listingsCollection = "listings"

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, translate("listings.by_id", err, domainlistings.ErrNotFound, nil)
	}
	return doc.toDomain(), nil
}

// Save inserts version 1 or updates the editable fields guarded by the stored
// version. View and rating counters are never written here.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	next := listing.Version + 1
	if listing.Version == 0 {
		doc.Version = next
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			return translate("listings.insert", err, nil, domainlistings.ErrConcurrentUpdate)
		}
		listing.Version = next
		return nil
	}
	update := bson.M{"$set": bson.M{
		"title":       doc.Title,
		"description": doc.Description,
		"image":       doc.Image,
		"price":       doc.Price,
		"location":    doc.Location,
		"country":     doc.Country,
		"category":    doc.Category,
		"max_guests":  doc.MaxGuests,
		"geometry":    doc.Geometry,
		"status":      doc.Status,
		"featured":    doc.Featured,
		"updated_at":  doc.UpdatedAt,
		"version":     next,
	}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID, "version": listing.Version}, update)
	if err != nil {
		return translate("listings.update", err, nil, domainlistings.ErrConcurrentUpdate)
	}
	if res.MatchedCount == 0 {
		return domainlistings.ErrConcurrentUpdate
	}
	listing.Version = next
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return translate("listings.delete", err, nil, nil)
	}
	if res.DeletedCount == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	opts := params.Normalized()
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	cur, err := r.col.Find(ctx, searchFilter(opts), findOpts)
	if err != nil {
		return nil, translate("listings.search", err, nil, nil)
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("listings.search", err, nil, nil)
	}
	out := make([]*domainlistings.Listing, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func searchFilter(p domainlistings.SearchParams) bson.M {
	and := bson.A{}
	if p.Destination != "" {
		rx := containsPattern(p.Destination)
		and = append(and, bson.M{"$or": bson.A{bson.M{"location": rx}, bson.M{"country": rx}}})
	}
	if p.Text != "" {
		rx := containsPattern(p.Text)
		and = append(and, bson.M{"$or": bson.A{bson.M{"title": rx}, bson.M{"description": rx}}})
	}
	if p.Status != "" {
		and = append(and, bson.M{"status": string(p.Status)})
	}
	if p.Featured != nil {
		and = append(and, bson.M{"featured": *p.Featured})
	}
	if p.OwnerID != "" {
		and = append(and, bson.M{"owner_id": p.OwnerID})
	}
	if p.Category != "" {
		and = append(and, bson.M{"category": string(p.Category)})
	}
	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

func containsPattern(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// RecordView relies on the unique_viewers guard so concurrent views of the same
// fingerprint increment at most once.
func (r *ListingRepository) RecordView(ctx context.Context, id domainlistings.ListingID, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, r.exists(ctx, id)
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": string(id), "unique_viewers": bson.M{"$ne": fingerprint}},
		bson.M{"$addToSet": bson.M{"unique_viewers": fingerprint}, "$inc": bson.M{"views": 1}},
	)
	if err != nil {
		return false, translate("listings.record_view", err, nil, nil)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}
	return false, r.exists(ctx, id)
}

func (r *ListingRepository) ApplyRating(ctx context.Context, id domainlistings.ListingID, change domainlistings.RatingChange) error {
	filter := bson.M{"_id": string(id)}
	var update bson.M
	if change.Removed {
		filter["review_ids"] = change.ReviewID
		update = bson.M{
			"$pull": bson.M{"review_ids": change.ReviewID},
			"$inc":  bson.M{"rating_sum": -int64(change.Rating), "rating_count": -1},
		}
	} else {
		filter["review_ids"] = bson.M{"$ne": change.ReviewID}
		update = bson.M{
			"$push": bson.M{"review_ids": change.ReviewID},
			"$inc":  bson.M{"rating_sum": int64(change.Rating), "rating_count": 1},
		}
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate("listings.apply_rating", err, nil, nil)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.exists(ctx, id)
}

func (r *ListingRepository) Stats(ctx context.Context) (domainlistings.Stats, error) {
	stats := domainlistings.Stats{ByCategory: make(map[domainlistings.Category]int)}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":      "$category",
			"total":    bson.M{"$sum": 1},
			"pending":  bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", string(domainlistings.StatusPending)}}, 1, 0}}},
			"featured": bson.M{"$sum": bson.M{"$cond": bson.A{"$featured", 1, 0}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, translate("listings.stats", err, nil, nil)
	}
	var rows []struct {
		Category string `bson:"_id"`
		Total    int    `bson:"total"`
		Pending  int    `bson:"pending"`
		Featured int    `bson:"featured"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return stats, translate("listings.stats", err, nil, nil)
	}
	for _, row := range rows {
		stats.Total += row.Total
		stats.Pending += row.Pending
		stats.Featured += row.Featured
		stats.ByCategory[domainlistings.Category(row.Category)] += row.Total
	}
	return stats, nil
}

func (r *ListingRepository) exists(ctx context.Context, id domainlistings.ListingID) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": string(id)}, options.Count().SetLimit(1))
	if err != nil {
		return translate("listings.exists", err, nil, nil)
	}
	if n == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

// pointDocument is GeoJSON so a 2dsphere index can serve proximity queries.
type pointDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type imageDocument struct {
	URL      string `bson:"url"`
	Filename string `bson:"filename"`
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

type listingDocument struct {
	ID            string         `bson:"_id"`
	OwnerID       string         `bson:"owner_id"`
	Title         string         `bson:"title"`
	Description   string         `bson:"description"`
	Image         imageDocument  `bson:"image"`
	Price         moneyDocument  `bson:"price"`
	Location      string         `bson:"location"`
	Country       string         `bson:"country"`
	Category      string         `bson:"category"`
	MaxGuests     int            `bson:"max_guests"`
	Geometry      *pointDocument `bson:"geometry,omitempty"`
	Status        string         `bson:"status"`
	Featured      bool           `bson:"featured"`
	Views         int64          `bson:"views"`
	UniqueViewers []string       `bson:"unique_viewers"`
	ReviewIDs     []string       `bson:"review_ids"`
	RatingSum     int64          `bson:"rating_sum"`
	RatingCount   int64          `bson:"rating_count"`
	CreatedAt     time.Time      `bson:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at"`
	Version       int64          `bson:"version"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	doc := listingDocument{
		ID:            string(l.ID),
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		Description:   l.Description,
		Image:         imageDocument{URL: l.Image.URL, Filename: l.Image.Filename},
		Price:         moneyDocument{Amount: l.Price.Amount, Currency: l.Price.Currency},
		Location:      l.Location,
		Country:       l.Country,
		Category:      string(l.Category),
		MaxGuests:     l.MaxGuests,
		Status:        string(l.Status),
		Featured:      l.Featured,
		Views:         l.Views,
		UniqueViewers: nonNil(l.UniqueViewers),
		ReviewIDs:     nonNil(l.ReviewIDs),
		RatingSum:     l.RatingSum,
		RatingCount:   l.RatingCount,
		CreatedAt:     l.CreatedAt.UTC(),
		UpdatedAt:     l.UpdatedAt.UTC(),
		Version:       l.Version,
	}
	if l.Geometry != nil {
		doc.Geometry = &pointDocument{Type: "Point", Coordinates: []float64{l.Geometry.Lon(), l.Geometry.Lat()}}
	}
	return doc
}

func (d listingDocument) toDomain() *domainlistings.Listing {
	l := &domainlistings.Listing{
		ID:            domainlistings.ListingID(d.ID),
		OwnerID:       d.OwnerID,
		Title:         d.Title,
		Description:   d.Description,
		Image:         domainlistings.Image{URL: d.Image.URL, Filename: d.Image.Filename},
		Price:         money.Money{Amount: d.Price.Amount, Currency: d.Price.Currency},
		Location:      d.Location,
		Country:       d.Country,
		Category:      domainlistings.Category(d.Category),
		MaxGuests:     d.MaxGuests,
		Status:        domainlistings.Status(d.Status),
		Featured:      d.Featured,
		Views:         d.Views,
		UniqueViewers: d.UniqueViewers,
		ReviewIDs:     d.ReviewIDs,
		RatingSum:     d.RatingSum,
		RatingCount:   d.RatingCount,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
	if d.Geometry != nil && len(d.Geometry.Coordinates) == 2 {
		p := orb.Point{d.Geometry.Coordinates[0], d.Geometry.Coordinates[1]}
		l.Geometry = &p
	}
	return l
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
