package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

type Client struct {
	DB *mongo.Database
	// Transactions is true when the deployment is a replica set or sharded cluster.
	Transactions bool
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := m.Ping(ctx, readpref.Primary()); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	c := &Client{DB: m.Database(database)}
	c.Transactions = supportsTransactions(ctx, c.DB)
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, readpref.Primary())
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// Factory returns a unit-of-work factory over every repository of the database.
func (c *Client) Factory() Factory {
	return Factory{
		DB:           c.DB,
		Transactions: c.Transactions,
		ListingsRepo: NewListingRepository(c.DB),
		BookingsRepo: NewBookingRepository(c.DB),
		ReviewsRepo:  NewReviewRepository(c.DB),
		UsersRepo:    NewUserRepository(c.DB),
	}
}

// standalone servers reject transactions, so units degrade to plain writes there
func supportsTransactions(ctx context.Context, db *mongo.Database) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}
