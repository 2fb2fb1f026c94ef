package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories depend on for
// uniqueness and expiry. It is safe to call on every start.
func (c *Client) EnsureIndexes(ctx context.Context, idempotencyTTL time.Duration) error {
	specs := map[string][]mongo.IndexModel{
		listingsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "geometry", Value: "2dsphere"}}, Options: options.Index().SetSparse(true)},
		},
		bookingsCollection: {
			{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "listing_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "check_out", Value: 1}}},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "listing_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("author_listing_unique")},
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "username_key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		},
		sessionsCollection: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		idempotencyCollection: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(idempotencyTTL.Seconds()))},
		},
	}
	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: ensure indexes on %s: %w", name, err)
		}
	}
	return nil
}
