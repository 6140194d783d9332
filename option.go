package rowstream

import (
	"io"

	"github.com/sirupsen/logrus"
)

// DefaultPageSize is the number of rows a stream fetches per page when
// WithPageSize is not given.
const DefaultPageSize = 5

type RepositoryOption[T any] func(o *option[T])

type option[T any] struct {
	initValues []T
	logger     logrus.FieldLogger
}

// InitWith inserts values when the repository is created, ignoring rows whose
// key already exists.
func InitWith[T any](values []T) RepositoryOption[T] {
	return func(o *option[T]) {
		o.initValues = values
	}
}

// WithLogger sets the logger used by the repository and the seeding helpers.
// The page fetcher and the stream never log.
func WithLogger[T any](logger logrus.FieldLogger) RepositoryOption[T] {
	return func(o *option[T]) {
		o.logger = logger
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type QueryOption func(o *queryOption)

type queryOption struct {
	Tx              Transaction
	Limit           int
	Offset          int64
	Sorter          []string
	IgnoreDuplicate bool
}

// WithTransaction returns a QueryOption that sets the transaction
// to use for the query.
func WithTransaction(tx Transaction) QueryOption {
	return func(o *queryOption) {
		o.Tx = tx
	}
}

// WithLimit returns a QueryOption that sets the limit for the
// number of rows to return.
func WithLimit(limit int) QueryOption {
	return func(o *queryOption) {
		o.Limit = limit
	}
}

// WithOffset returns a QueryOption that sets the offset for the
// rows returned.
func WithOffset(offset int64) QueryOption {
	return func(o *queryOption) {
		o.Offset = offset
	}
}

// WithSorter returns a QueryOption that sets the sorting order for the query.
// Field names are prefixed by "-" for descending order and optionally by "+"
// for ascending order.
//
// example:
//
//	WithSorter("-name", "+age")
func WithSorter(sorter ...string) QueryOption {
	return func(o *queryOption) {
		o.Sorter = sorter
	}
}

// WithIgnoreDuplicate makes Insert and InsertAll discard rows whose key
// already exists.
func WithIgnoreDuplicate() QueryOption {
	return func(o *queryOption) {
		o.IgnoreDuplicate = true
	}
}

type StreamOption func(o *streamOption)

type streamOption struct {
	pageSize    int
	startOffset int64
}

// WithPageSize sets how many rows each page fetch asks for. Non-positive
// values keep the default.
func WithPageSize(size int) StreamOption {
	return func(o *streamOption) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// WithStartOffset starts the stream at offset instead of 0.
func WithStartOffset(offset int64) StreamOption {
	return func(o *streamOption) {
		if offset > 0 {
			o.startOffset = offset
		}
	}
}
