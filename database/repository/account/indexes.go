package accountRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates the uniqueness and lookup indexes. The email and phone
// indexes are what make confirm-time uniqueness hold under concurrent commits.
// The id index is partial so collections holding documents without an id
// still build it.
func (r *MongoAccountRepo) ensureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"id": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "areaCode", Value: 1}, {Key: "mobile", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"mobile": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "usedPayments", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"usedPayments": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "cardStatus", Value: 1}, {Key: "updatedAt", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// withTimeout bounds a single Mongo operation.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
