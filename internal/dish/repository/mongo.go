package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
)

// MongoRepo stores dishes in a MongoDB collection keyed by the external
// dishId field, with a unique index enforcing the key invariant.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "dishId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Insert(ctx context.Context, d *dish.Dish) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err := m.col.InsertOne(ctx, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// unique index on dishId rejected the write; existing record untouched
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (m *MongoRepo) Get(ctx context.Context, dishID string) (*dish.Dish, error) {
	var d dish.Dish
	err := m.col.FindOne(ctx, bson.M{"dishId": dishID}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) List(ctx context.Context, f dish.Filter) ([]*dish.Dish, error) {
	query := bson.M{}
	if f.Published != nil {
		query["isPublished"] = *f.Published
	}
	if f.Search != "" {
		query["dishName"] = bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
	}

	field, asc := f.Sort()
	order := -1
	if asc {
		order = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: field, Value: order}})

	cur, err := m.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*dish.Dish{}
	for cur.Next(ctx) {
		var d dish.Dish
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Update(ctx context.Context, dishID string, p dish.Patch) (*dish.Dish, error) {
	set := bson.M{"updatedAt": "$$NOW"}
	// pipeline updates evaluate $-prefixed strings as expressions, so
	// user-supplied values must be wrapped as literals
	if p.DishName != nil {
		set["dishName"] = bson.M{"$literal": *p.DishName}
	}
	if p.ImageURL != nil {
		set["imageUrl"] = bson.M{"$literal": *p.ImageURL}
	}
	if p.IsPublished != nil {
		set["isPublished"] = *p.IsPublished
	}

	var d dish.Dish
	err := m.col.FindOneAndUpdate(ctx,
		bson.M{"dishId": dishID},
		mongo.Pipeline{bson.D{{Key: "$set", Value: set}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// TogglePublished negates isPublished in a single FindOneAndUpdate with a
// pipeline update, so the read and the write happen as one atomic step on the
// document. Two near-simultaneous toggles serialize and cancel out.
func (m *MongoRepo) TogglePublished(ctx context.Context, dishID string) (*dish.Dish, error) {
	var d dish.Dish
	err := m.col.FindOneAndUpdate(ctx,
		bson.M{"dishId": dishID},
		mongo.Pipeline{bson.D{{Key: "$set", Value: bson.M{
			"isPublished": bson.M{"$not": "$isPublished"},
			"updatedAt":   "$$NOW",
		}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) Delete(ctx context.Context, dishID string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"dishId": dishID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Count(ctx context.Context) (int64, error) {
	return m.col.CountDocuments(ctx, bson.M{})
}
