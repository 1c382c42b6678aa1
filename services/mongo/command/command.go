package command

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func InsertOne[T any](ctx context.Context, collection *mongo.Collection, document T) (*mongo.InsertOneResult, error) {
	return collection.InsertOne(ctx, document)
}

func DeleteByID(ctx context.Context, collection *mongo.Collection, id primitive.ObjectID) (*mongo.DeleteResult, error) {
	return collection.DeleteOne(ctx, bson.M{"_id": id})
}
