package rowstream

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// PageRequest is one bounded range read.
type PageRequest struct {
	Offset int64
	Limit  int
}

func (p PageRequest) Validate() error {
	if p.Offset < 0 {
		return fmt.Errorf("%w: offset %d is negative", ErrInvalidPage, p.Offset)
	}

	if p.Limit <= 0 {
		return fmt.Errorf("%w: limit %d must be positive", ErrInvalidPage, p.Limit)
	}

	return nil
}

// PageFetcher executes a single page read. It returns at most req.Limit rows
// in store order; an empty page means there is no more data. Implementations
// must release any cursor before returning and must not retry. The caller owns
// the returned slice.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, req PageRequest) ([]T, error)
}

// PageFetcherFunc adapts a function to a PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, req PageRequest) ([]T, error)

func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, req PageRequest) ([]T, error) {
	return f(ctx, req)
}

type sqlPageFetcher[T any] struct {
	db       sqlx.QueryerContext
	tableDef SQLTableDef
	query    string
}

// NewSQLPageFetcher returns a PageFetcher reading T's table through db. The
// table and column list come from T's struct tags; rows are ordered by the key
// column unless WithSorter is given.
func NewSQLPageFetcher[T any](db *sqlx.DB, options ...QueryOption) (PageFetcher[T], error) {
	dialect, err := DialectOf(db.DriverName())
	if err != nil {
		return nil, err
	}

	tb, err := createSQLTableDef[T](dialect)
	if err != nil {
		return nil, err
	}

	return newSQLPageFetcher[T](db, tb, options...), nil
}

func newSQLPageFetcher[T any](db sqlx.QueryerContext, tb SQLTableDef, options ...QueryOption) *sqlPageFetcher[T] {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	sorter := opt.Sorter
	if len(sorter) == 0 && tb.KeyField != "" {
		sorter = []string{tb.KeyField}
	}

	orderBy := ""
	if srt := MakeSortClause(sorter, nil); srt != "" {
		orderBy = " ORDER BY " + srt
	}

	return &sqlPageFetcher[T]{
		db:       db,
		tableDef: tb,
		query:    fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(tb.ColumnNames(), ","), tb.FullTableName(), orderBy),
	}
}

func (f *sqlPageFetcher[T]) FetchPage(ctx context.Context, req PageRequest) ([]T, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	qry := f.query + createLimitOffsetSql(req.Limit, req.Offset)
	rows, err := f.db.QueryxContext(ctx, qry)
	if err != nil {
		return nil, f.queryError(err)
	}
	defer rows.Close()

	page := make([]T, 0, req.Limit)
	for rows.Next() {
		var row T
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrMalformedRow, req.Offset+int64(len(page)), err)
		}
		page = append(page, row)
	}

	if err := rows.Err(); err != nil {
		return nil, f.queryError(err)
	}

	return page, nil
}

// queryError classifies a failed page query. The statement is fixed, so a
// column the table lacks or cannot convert is a row shape problem; anything
// else (closed handle, lost connection, canceled context, missing table)
// means the store could not serve the page.
func (f *sqlPageFetcher[T]) queryError(err error) error {
	if isColumnMismatch(err) {
		return fmt.Errorf("%w: table %s does not match the model: %w", ErrMalformedRow, f.tableDef.FullTableName(), err)
	}

	return storeUnavailable(err)
}
