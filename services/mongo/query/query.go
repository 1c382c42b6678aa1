package query

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func FindByID[T any](ctx context.Context, collection *mongo.Collection, id primitive.ObjectID, result *T) error {
	return collection.FindOne(ctx, bson.M{"_id": id}).Decode(result)
}

func FindMany[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, results *[]T, opts ...*options.FindOptions) error {
	var findOptions *options.FindOptions
	if len(opts) > 0 {
		findOptions = opts[0]
	}

	cursor, err := collection.Find(ctx, filter, findOptions)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	return cursor.All(ctx, results)
}

func Exists(ctx context.Context, collection *mongo.Collection, filter bson.M) (bool, error) {
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func Aggregate[T any](ctx context.Context, collection *mongo.Collection, pipeline []bson.M, results *[]T) error {
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	return cursor.All(ctx, results)
}
