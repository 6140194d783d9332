package rowstream

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
)

type mongoPageFetcher[T any] struct {
	collection *mongo.Collection
	sort       bson.D
}

// NewMongoPageFetcher returns a PageFetcher reading documents of collection
// with skip/limit, ordered by _id unless WithSorter is given.
func NewMongoPageFetcher[T any](collection *mongo.Collection, options ...QueryOption) PageFetcher[T] {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	sort := bson.D{{Key: "_id", Value: 1}}
	if len(opt.Sorter) > 0 {
		sort = makeMongoSort(opt.Sorter)
	}

	return &mongoPageFetcher[T]{
		collection: collection,
		sort:       sort,
	}
}

func makeMongoSort(sorter []string) bson.D {
	var sort bson.D
	for _, s := range sorter {
		if s == "" {
			continue
		}

		dir := 1
		field := s
		switch s[:1] {
		case "-":
			dir = -1
			field = s[1:]
		case "+":
			field = s[1:]
		}

		sort = append(sort, bson.E{Key: field, Value: dir})
	}

	return sort
}

func (f *mongoPageFetcher[T]) FetchPage(ctx context.Context, req PageRequest) ([]T, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	findOpts := mongoOptions.Find().
		SetSort(f.sort).
		SetSkip(req.Offset).
		SetLimit(int64(req.Limit))

	cur, err := f.collection.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	defer cur.Close(ctx)

	page := make([]T, 0, req.Limit)
	for cur.Next(ctx) {
		var row T
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrMalformedRow, req.Offset+int64(len(page)), err)
		}
		page = append(page, row)
	}

	if err := cur.Err(); err != nil {
		return nil, storeUnavailable(err)
	}

	return page, nil
}
