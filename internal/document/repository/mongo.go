package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/nexabuild/go-services/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoRecord is the stored shape. The document body is kept as its JSON
// text so it round-trips byte-for-byte, field order included.
type mongoRecord struct {
	ID         string    `bson:"id"`
	Collection string    `bson:"collection"`
	Data       string    `bson:"data"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// MongoRepo implements a MongoDB-backed repository. All collections share one
// Mongo collection, keyed by a unique (collection, id) index.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idxModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "collection", Value: 1}, {Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := col.Indexes().CreateOne(ctx, idxModel); err != nil {
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Upsert(ctx context.Context, rec *document.Record) error {
	filter := bson.M{"collection": rec.Collection, "id": rec.ID}
	update := bson.M{
		"$set":         bson.M{"data": string(rec.Data)},
		"$setOnInsert": bson.M{"createdAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored mongoRecord
	if err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return fmt.Errorf("mongo upsert: %w", err)
	}
	rec.CreatedAt = stored.CreatedAt.UTC()
	return nil
}

func (m *MongoRepo) List(ctx context.Context, collection string) ([]*document.Record, error) {
	// _id is an ObjectID minted on insert; its counter orders same-millisecond inserts.
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{"collection": collection}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list: %w", err)
	}
	defer cur.Close(ctx)
	out := []*document.Record{}
	for cur.Next(ctx) {
		var r mongoRecord
		if err := cur.Decode(&r); err != nil {
			return nil, fmt.Errorf("mongo decode: %w", err)
		}
		out = append(out, &document.Record{
			ID:         r.ID,
			Collection: r.Collection,
			Data:       []byte(r.Data),
			CreatedAt:  r.CreatedAt.UTC(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo list: %w", err)
	}
	return out, nil
}

func (m *MongoRepo) Delete(ctx context.Context, collection, id string) error {
	if _, err := m.col.DeleteOne(ctx, bson.M{"collection": collection, "id": id}); err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	return nil
}

func (m *MongoRepo) Ping(ctx context.Context) error {
	return m.col.Database().Client().Ping(ctx, nil)
}
