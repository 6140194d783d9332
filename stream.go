package rowstream

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

var _ RowIterator[User] = (*Stream[User])(nil)

type StreamState int

const (
	StateIdle StreamState = iota
	StateFetching
	StateDelivering
	StateDone
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateDelivering:
		return "delivering"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("StreamState(%d)", int(s))
	}
}

// Stream lazily turns repeated page fetches into a single sequence of rows.
// A page is fetched only from inside Next, and only when every row of the
// previous page has been handed out. The offset advances by the page size for
// every non-empty page, even a short one; only an empty page ends the stream.
//
// A Stream is not safe for concurrent use.
type Stream[T any] struct {
	ctx      context.Context
	fetcher  PageFetcher[T]
	pageSize int
	offset   int64
	state    StreamState

	buf []T
	pos int
}

func NewStream[T any](ctx context.Context, fetcher PageFetcher[T], options ...StreamOption) *Stream[T] {
	opt := &streamOption{pageSize: DefaultPageSize}
	for _, op := range options {
		op(opt)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	return &Stream[T]{
		ctx:      ctx,
		fetcher:  fetcher,
		pageSize: opt.pageSize,
		offset:   opt.startOffset,
		state:    StateIdle,
	}
}

// Next returns the next row. It returns ErrEndOfStream once the stream is
// done, on this and every later call. A fetch failure is returned once by the
// call that triggered it and ends the stream.
func (s *Stream[T]) Next() (*T, error) {
	if s.state == StateDone {
		return nil, ErrEndOfStream
	}

	if s.pos >= len(s.buf) {
		if err := s.fetch(); err != nil {
			return nil, err
		}

		if s.state == StateDone {
			return nil, ErrEndOfStream
		}
	}

	row := s.buf[s.pos]
	var zero T
	s.buf[s.pos] = zero
	s.pos++

	if s.pos == len(s.buf) {
		s.buf, s.pos = nil, 0
		s.state = StateIdle
	}

	return &row, nil
}

func (s *Stream[T]) fetch() error {
	s.state = StateFetching

	page, err := s.fetcher.FetchPage(s.ctx, PageRequest{Offset: s.offset, Limit: s.pageSize})
	if err != nil {
		s.finish()
		return err
	}

	if len(page) > s.pageSize {
		s.finish()
		return fmt.Errorf("%w: page at offset %d has %d rows, limit is %d", ErrMalformedRow, s.offset, len(page), s.pageSize)
	}

	if len(page) == 0 {
		s.finish()
		return nil
	}

	s.offset += int64(s.pageSize)
	s.buf, s.pos = page, 0
	s.state = StateDelivering
	return nil
}

func (s *Stream[T]) finish() {
	s.buf, s.pos = nil, 0
	s.state = StateDone
}

// Close abandons the stream. Later calls to Next return ErrEndOfStream.
func (s *Stream[T]) Close() error {
	s.finish()
	return nil
}

func (s *Stream[T]) State() StreamState {
	return s.state
}

// Offset is the offset the next page will be fetched from.
func (s *Stream[T]) Offset() int64 {
	return s.offset
}

// All adapts the stream to a range-over-func loop. A fetch error is yielded
// once and ends the loop. Breaking out of the loop leaves the stream where it
// stopped.
func (s *Stream[T]) All() iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		for {
			row, err := s.Next()
			if errors.Is(err, ErrEndOfStream) {
				return
			}

			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}
