package rowstream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	rows       []User
	maxPerPage int
	failOn     map[int]error
	requests   []PageRequest
}

func newFakeFetcher(n int) *fakeFetcher {
	rows := make([]User, n)
	for i := range rows {
		rows[i] = User{
			UserID: fmt.Sprintf("user-%03d", i),
			Name:   fmt.Sprintf("User %d", i),
			Email:  fmt.Sprintf("user%d@example.com", i),
			Age:    20 + i,
		}
	}
	return &fakeFetcher{rows: rows}
}

func (f *fakeFetcher) FetchPage(_ context.Context, req PageRequest) ([]User, error) {
	f.requests = append(f.requests, req)
	if err, ok := f.failOn[len(f.requests)]; ok {
		return nil, err
	}

	if req.Offset >= int64(len(f.rows)) {
		return []User{}, nil
	}

	limit := req.Limit
	if f.maxPerPage > 0 && f.maxPerPage < limit {
		limit = f.maxPerPage
	}

	end := int(req.Offset) + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}

	return append([]User(nil), f.rows[req.Offset:end]...), nil
}

func (f *fakeFetcher) offsets() []int64 {
	return sliceMap(f.requests, func(r PageRequest) int64 { return r.Offset })
}

func drain(t *testing.T, s *Stream[User]) []User {
	t.Helper()
	var out []User
	for {
		row, err := s.Next()
		if errors.Is(err, ErrEndOfStream) {
			return out
		}
		require.NoError(t, err)
		out = append(out, *row)
	}
}

func TestStreamYieldsEveryRowOnce(t *testing.T) {
	f := newFakeFetcher(15)
	s := NewStream[User](context.Background(), f, WithPageSize(4))

	got := drain(t, s)
	require.Equal(t, f.rows, got)
	require.Equal(t, []int64{0, 4, 8, 12, 16}, f.offsets())
	for _, req := range f.requests {
		require.Equal(t, 4, req.Limit)
	}
	require.Equal(t, StateDone, s.State())
}

func TestStreamDoesNotReadAhead(t *testing.T) {
	for _, pageSize := range []int{1, 4, 100} {
		t.Run(fmt.Sprintf("page size %d", pageSize), func(t *testing.T) {
			f := newFakeFetcher(15)
			s := NewStream[User](context.Background(), f, WithPageSize(pageSize))
			require.Equal(t, StateIdle, s.State())
			require.Empty(t, f.requests)

			row, err := s.Next()
			require.NoError(t, err)
			require.Equal(t, "user-000", row.UserID)
			require.Len(t, f.requests, 1)
		})
	}
}

func TestStreamEarlyAbandonment(t *testing.T) {
	f := newFakeFetcher(15)
	s := NewStream[User](context.Background(), f, WithPageSize(4))

	for i := 0; i < 2; i++ {
		_, err := s.Next()
		require.NoError(t, err)
	}

	require.Len(t, f.requests, 1)
	require.Equal(t, StateDelivering, s.State())
}

func TestStreamTerminationIsIdempotent(t *testing.T) {
	f := newFakeFetcher(3)
	s := NewStream[User](context.Background(), f, WithPageSize(2))

	require.Len(t, drain(t, s), 3)
	fetches := len(f.requests)

	for i := 0; i < 5; i++ {
		row, err := s.Next()
		require.Nil(t, row)
		require.ErrorIs(t, err, ErrEndOfStream)
	}
	require.Len(t, f.requests, fetches)
	require.Equal(t, StateDone, s.State())
}

func TestStreamEmptyTable(t *testing.T) {
	f := newFakeFetcher(0)
	s := NewStream[User](context.Background(), f, WithPageSize(4))

	_, err := s.Next()
	require.ErrorIs(t, err, ErrEndOfStream)
	require.Len(t, f.requests, 1)
	require.Equal(t, int64(0), s.Offset())
}

func TestStreamShortPagesAreNotTerminal(t *testing.T) {
	f := newFakeFetcher(10)
	f.maxPerPage = 3
	s := NewStream[User](context.Background(), f, WithPageSize(4))

	got := drain(t, s)
	require.Equal(t, []int64{0, 4, 8, 12}, f.offsets())

	ids := sliceMap(got, func(u User) string { return u.UserID })
	require.Equal(t, []string{
		"user-000", "user-001", "user-002",
		"user-004", "user-005", "user-006",
		"user-008", "user-009",
	}, ids)
}

func TestStreamShortLastPage(t *testing.T) {
	f := newFakeFetcher(6)
	s := NewStream[User](context.Background(), f, WithPageSize(4))

	require.Len(t, drain(t, s), 6)
	require.Equal(t, []int64{0, 4, 8}, f.offsets())
}

func TestStreamStateTransitions(t *testing.T) {
	f := newFakeFetcher(5)
	s := NewStream[User](context.Background(), f, WithPageSize(2))
	require.Equal(t, StateIdle, s.State())

	_, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, StateDelivering, s.State())
	require.Equal(t, int64(2), s.Offset())

	_, err = s.Next()
	require.NoError(t, err)
	require.Equal(t, StateIdle, s.State())
	require.Len(t, f.requests, 1)

	_, err = s.Next()
	require.NoError(t, err)
	require.Len(t, f.requests, 2)

	require.Len(t, drain(t, s), 2)
	require.Equal(t, StateDone, s.State())
	require.Equal(t, "done", s.State().String())
}

func TestStreamErrorIsReturnedOnceThenTerminal(t *testing.T) {
	f := newFakeFetcher(15)
	f.failOn = map[int]error{2: storeUnavailable(errors.New("connection reset"))}
	s := NewStream[User](context.Background(), f, WithPageSize(4))

	for i := 0; i < 4; i++ {
		_, err := s.Next()
		require.NoError(t, err)
	}

	row, err := s.Next()
	require.Nil(t, row)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.Equal(t, []int64{0, 4}, f.offsets())
	require.Equal(t, int64(4), s.Offset())

	for i := 0; i < 3; i++ {
		_, err := s.Next()
		require.ErrorIs(t, err, ErrEndOfStream)
	}
	require.Len(t, f.requests, 2)
}

func TestStreamMalformedRowDoesNotAdvanceOffset(t *testing.T) {
	f := newFakeFetcher(15)
	f.failOn = map[int]error{1: fmt.Errorf("%w: bad age", ErrMalformedRow)}
	s := NewStream[User](context.Background(), f, WithPageSize(4))

	_, err := s.Next()
	require.ErrorIs(t, err, ErrMalformedRow)
	require.Equal(t, int64(0), s.Offset())

	_, err = s.Next()
	require.ErrorIs(t, err, ErrEndOfStream)
	require.Len(t, f.requests, 1)
}

func TestStreamRejectsOversizedPage(t *testing.T) {
	fetcher := PageFetcherFunc[User](func(_ context.Context, req PageRequest) ([]User, error) {
		return make([]User, req.Limit+1), nil
	})
	s := NewStream[User](context.Background(), fetcher, WithPageSize(2))

	_, err := s.Next()
	require.ErrorIs(t, err, ErrMalformedRow)
	require.Equal(t, StateDone, s.State())
}

func TestStreamClose(t *testing.T) {
	f := newFakeFetcher(15)
	s := NewStream[User](context.Background(), f, WithPageSize(4))

	_, err := s.Next()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Next()
	require.ErrorIs(t, err, ErrEndOfStream)
	require.Len(t, f.requests, 1)
}

func TestStreamStartOffsetAndDefaults(t *testing.T) {
	f := newFakeFetcher(15)
	s := NewStream[User](context.Background(), f, WithStartOffset(10), WithPageSize(0))

	got := drain(t, s)
	require.Equal(t, f.rows[10:], got)
	require.Equal(t, []int64{10, 15}, f.offsets())
	require.Equal(t, DefaultPageSize, f.requests[0].Limit)
}

func TestStreamAll(t *testing.T) {
	t.Run("ranges over every row", func(t *testing.T) {
		f := newFakeFetcher(7)
		s := NewStream[User](context.Background(), f, WithPageSize(3))

		var n int
		for row, err := range s.All() {
			require.NoError(t, err)
			require.Equal(t, f.rows[n], *row)
			n++
		}
		require.Equal(t, 7, n)
	})

	t.Run("break stops fetching", func(t *testing.T) {
		f := newFakeFetcher(15)
		s := NewStream[User](context.Background(), f, WithPageSize(4))

		var n int
		for _, err := range s.All() {
			require.NoError(t, err)
			n++
			if n == 2 {
				break
			}
		}
		require.Len(t, f.requests, 1)

		row, err := s.Next()
		require.NoError(t, err)
		require.Equal(t, "user-002", row.UserID)
	})

	t.Run("yields the error once", func(t *testing.T) {
		f := newFakeFetcher(15)
		f.failOn = map[int]error{1: storeUnavailable(errors.New("closed"))}
		s := NewStream[User](context.Background(), f, WithPageSize(4))

		var errs []error
		for _, err := range s.All() {
			errs = append(errs, err)
		}
		require.Len(t, errs, 1)
		require.ErrorIs(t, errs[0], ErrStoreUnavailable)
	})
}

func TestStreamHandsOffRows(t *testing.T) {
	f := newFakeFetcher(2)
	s := NewStream[User](context.Background(), f, WithPageSize(2))

	first, err := s.Next()
	require.NoError(t, err)
	first.Name = "changed"

	second, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "User 1", second.Name)
	require.Equal(t, "User 0", f.rows[0].Name)
}
