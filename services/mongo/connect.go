package mongo

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect dials Mongo with exponential backoff and verifies the connection
// with a ping. Startup should tolerate a database that is still coming up.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	var client *mongo.Client

	operation := func() error {
		dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		c, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		if err := c.Ping(dctx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return fmt.Errorf("mongo ping: %w", err)
		}
		client = c
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	notify := func(err error, next time.Duration) {
		log.Printf("mongo: connection failed, retrying in %s: %v", next.Round(time.Millisecond), err)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}

	log.Printf("mongo: connected to %s", redactedURI(uri))
	return client, nil
}

func redactedURI(uri string) string {
	// Avoid leaking credentials embedded in the URI into logs.
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '@' {
			return "mongodb://****" + uri[i:]
		}
	}
	return uri
}
