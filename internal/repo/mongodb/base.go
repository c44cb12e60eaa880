package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

type IEntity interface {
	CollectionName() string
}

type PaginateWithTotal[E any] struct {
	Total int64
	Data  []E
}

type baseRepo[E IEntity] struct {
	coll *mongo.Collection
}

func newBaseRepo[E IEntity](db *DB) baseRepo[E] {
	var entity E
	return baseRepo[E]{
		coll: db.Database.Collection(entity.CollectionName()),
	}
}

// Insert stores entity and returns the generated id. A unique index
// violation is reported as models.ErrDuplicate.
func (r *baseRepo[E]) Insert(ctx context.Context, entity *E) (primitive.ObjectID, error) {
	result, err := r.coll.InsertOne(ctx, entity)
	if mongo.IsDuplicateKeyError(err) {
		return primitive.NilObjectID, models.ErrDuplicate
	}
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert one: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("invalid inserted id: %T %+v", result.InsertedID, result.InsertedID)
	}
	return oid, nil
}

func (r *baseRepo[E]) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*E, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	entities := []*E{}
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, fmt.Errorf("cursor all: %w", err)
	}
	return entities, nil
}

func (r *baseRepo[E]) FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*E, error) {
	var entity E
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindOneAndUpdate applies update and returns the document after it.
func (r *baseRepo[E]) FindOneAndUpdate(ctx context.Context, filter, update bson.M) (*E, error) {
	opts := options.
		FindOneAndUpdate().
		SetReturnDocument(options.After)

	var entity E
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// Upsert applies update, inserting when nothing matches. It returns the
// document after the write and whether it was inserted.
func (r *baseRepo[E]) Upsert(ctx context.Context, filter, update bson.M) (*E, bool, error) {
	before := options.
		FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var prev E
	err := r.coll.FindOneAndUpdate(ctx, filter, update, before).Decode(&prev)
	inserted := errors.Is(err, mongo.ErrNoDocuments)
	if err != nil && !inserted {
		return nil, false, err
	}

	after, err := r.FindOne(ctx, filter)
	if err != nil {
		return nil, inserted, err
	}
	return after, inserted, nil
}

func (r *baseRepo[E]) UpdateOne(ctx context.Context, filter, update bson.M) error {
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *baseRepo[E]) DeleteOne(ctx context.Context, filter bson.M) error {
	result, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *baseRepo[E]) Count(ctx context.Context, filter bson.M, opts ...*options.CountOptions) (int64, error) {
	return r.coll.CountDocuments(ctx, filter, opts...)
}

func (r *baseRepo[E]) PaginateWithTotal(ctx context.Context, filter bson.M, limit int64, skip int64, opts ...*options.FindOptions) (*PaginateWithTotal[*E], error) {
	group, ctx := errgroup.WithContext(ctx)
	entities := []*E{}
	var total int64

	group.Go(func() error {
		opts = append(opts, options.Find().SetSkip(skip).SetLimit(limit))
		cursor, err := r.coll.Find(ctx, filter, opts...)
		if err != nil {
			return fmt.Errorf("find: %w", err)
		}
		if err := cursor.All(ctx, &entities); err != nil {
			return fmt.Errorf("cursor all: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		var err error
		total, err = r.coll.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return &PaginateWithTotal[*E]{Total: total, Data: entities}, nil
}
