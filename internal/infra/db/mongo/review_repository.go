package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "wanderlust/internal/domain/listings"
	domainreviews "wanderlust/internal/domain/reviews"
)

const reviewsCollection = "reviews"

// ReviewRepository relies on the unique (author_id, listing_id) index to
// reject a second review from the same author.
type ReviewRepository struct {
	col *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{col: db.Collection(reviewsCollection)}
}

func (r *ReviewRepository) ByID(ctx context.Context, id domainreviews.ReviewID) (*domainreviews.Review, error) {
	return r.findOne(ctx, "reviews.by_id", bson.M{"_id": string(id)})
}

func (r *ReviewRepository) ByAuthorAndListing(ctx context.Context, authorID string, listingID domainlistings.ListingID) (*domainreviews.Review, error) {
	return r.findOne(ctx, "reviews.by_author", bson.M{"author_id": authorID, "listing_id": string(listingID)})
}

func (r *ReviewRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID, params domainreviews.ListParams) ([]*domainreviews.Review, int, error) {
	return r.list(ctx, bson.M{"listing_id": string(listingID)}, params)
}

func (r *ReviewRepository) ListAll(ctx context.Context, params domainreviews.ListParams) ([]*domainreviews.Review, int, error) {
	return r.list(ctx, bson.M{}, params)
}

func (r *ReviewRepository) Save(ctx context.Context, review *domainreviews.Review) error {
	doc := newReviewDocument(review)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return translate("reviews.save", err, nil, domainreviews.ErrDuplicate)
}

func (r *ReviewRepository) Delete(ctx context.Context, id domainreviews.ReviewID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return translate("reviews.delete", err, nil, nil)
	}
	if res.DeletedCount == 0 {
		return domainreviews.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) DeleteByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainreviews.Review, error) {
	filter := bson.M{"listing_id": string(listingID)}
	removed, _, err := r.list(ctx, filter, domainreviews.ListParams{})
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if _, err := r.col.DeleteMany(ctx, filter); err != nil {
		return nil, translate("reviews.delete_by_listing", err, nil, nil)
	}
	return removed, nil
}

func (r *ReviewRepository) Count(ctx context.Context) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, translate("reviews.count", err, nil, nil)
	}
	return int(n), nil
}

func (r *ReviewRepository) findOne(ctx context.Context, op string, filter bson.M) (*domainreviews.Review, error) {
	var doc reviewDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(op, err, domainreviews.ErrNotFound, nil)
	}
	return doc.toDomain(), nil
}

func (r *ReviewRepository) list(ctx context.Context, filter bson.M, params domainreviews.ListParams) ([]*domainreviews.Review, int, error) {
	if params.ApprovedOnly {
		filter["approved"] = true
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate("reviews.list", err, nil, nil)
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if params.Offset > 0 {
		findOpts.SetSkip(int64(params.Offset))
	}
	if params.Limit > 0 {
		findOpts.SetLimit(int64(params.Limit))
	}
	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, translate("reviews.list", err, nil, nil)
	}
	var docs []reviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, translate("reviews.list", err, nil, nil)
	}
	out := make([]*domainreviews.Review, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, int(total), nil
}

type reviewDocument struct {
	ID         string    `bson:"_id"`
	ListingID  string    `bson:"listing_id"`
	AuthorID   string    `bson:"author_id"`
	AuthorName string    `bson:"author_name"`
	Rating     int       `bson:"rating"`
	Comment    string    `bson:"comment"`
	Approved   bool      `bson:"approved"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func newReviewDocument(r *domainreviews.Review) reviewDocument {
	return reviewDocument{
		ID:         string(r.ID),
		ListingID:  string(r.ListingID),
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		Rating:     r.Rating,
		Comment:    r.Comment,
		Approved:   r.Approved,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func (d reviewDocument) toDomain() *domainreviews.Review {
	return &domainreviews.Review{
		ID:         domainreviews.ReviewID(d.ID),
		ListingID:  domainlistings.ListingID(d.ListingID),
		AuthorID:   d.AuthorID,
		AuthorName: d.AuthorName,
		Rating:     d.Rating,
		Comment:    d.Comment,
		Approved:   d.Approved,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

var _ domainreviews.Repository = (*ReviewRepository)(nil)
