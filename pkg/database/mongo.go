package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongoDB connects and pings the primary, retrying as c says. A client
// whose ping fails is disconnected before the next attempt.
func NewMongoDB(ctx context.Context, c Connection, dbName string) (*MongoDB, error) {
	opts := options.Client().ApplyURI(c.ConnectStr)

	var client *mongo.Client
	err := withRetry(ctx, "mongo", c.RetryCount, c.RetryInterval, func(ctx context.Context) error {
		cl, err := mongo.Connect(ctx, opts)
		if err != nil {
			return err
		}
		if err := cl.Ping(ctx, readpref.Primary()); err != nil {
			_ = cl.Disconnect(ctx)
			return err
		}
		client = cl
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &MongoDB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

// Close disconnects the client
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
