package rowstream

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v4"
)

const insertBatchSize = 100

type sqlRepository[K comparable, T any] struct {
	repository
	db      *sqlx.DB
	dialect Dialect
	fetcher *sqlPageFetcher[T]
	logger  logrus.FieldLogger
}

// CreateSQLRepository returns a repository of T rows over db. The dialect is
// picked from the driver db was opened with.
func CreateSQLRepository[K comparable, T any](db *sqlx.DB, options ...RepositoryOption[T]) (Repository[K, T], error) {
	opt := &option[T]{}
	for _, op := range options {
		op(opt)
	}

	if opt.logger == nil {
		opt.logger = discardLogger()
	}

	dialect, err := DialectOf(db.DriverName())
	if err != nil {
		return nil, err
	}

	tb, err := createSQLTableDef[T](dialect)
	if err != nil {
		return nil, err
	}

	var entity T
	mtyp := reflect.TypeOf(entity)

	repo := &sqlRepository[K, T]{
		repository: repository{
			Name:      tb.Name,
			tableDef:  tb,
			modelType: mtyp,
			modelTags: createModelTags(mtyp, "db"),
		},
		db:      db,
		dialect: dialect,
		fetcher: newSQLPageFetcher[T](db, tb),
		logger:  opt.logger.WithField("table", tb.FullTableName()),
	}

	if opt.initValues != nil {
		if err := repo.init(opt.initValues); err != nil {
			return nil, err
		}
	}

	return repo, nil
}

func (r *sqlRepository[K, T]) init(values []T) error {
	ctx := context.Background()
	if err := r.CreateTable(ctx); err != nil {
		return err
	}

	_, err := r.InsertAll(ctx, values, WithIgnoreDuplicate())
	return err
}

func (r *sqlRepository[K, T]) GetTableDef() SQLTableDef {
	return r.tableDef
}

func (r *sqlRepository[K, T]) CreateTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.tableDef.CreateDDL); err != nil {
		return fmt.Errorf("failed to create table %s. %w", r.tableDef.FullTableName(), err)
	}

	r.logger.WithField("ddl", r.tableDef.CreateDDL).Debug("table ready")
	return nil
}

func (r *sqlRepository[K, T]) TableColumns(ctx context.Context) ([]Column, error) {
	tb := r.tableDef
	if r.dialect == DialectSQLite {
		type columnInfo struct {
			CID       int         `db:"cid"`
			Name      string      `db:"name"`
			Type      string      `db:"type"`
			NotNull   int         `db:"notnull"`
			DfltValue null.String `db:"dflt_value"`
			Pk        int         `db:"pk"`
		}

		var cols []columnInfo
		if err := r.db.SelectContext(ctx, &cols, fmt.Sprintf("PRAGMA table_info(%s)", tb.Name)); err != nil {
			return nil, err
		}

		return sliceMap(cols, func(col columnInfo) Column {
			return Column{
				ColumnName: col.Name,
				DataType:   col.Type,
			}
		}), nil
	}

	qry := "SELECT column_name AS column_name, data_type AS data_type FROM information_schema.columns WHERE table_name = ?"
	args := []any{tb.Name}
	if tb.Schema != "" {
		qry += " AND table_schema = ?"
		args = append(args, tb.Schema)
	}
	qry += " ORDER BY ordinal_position"

	var cols []Column
	if err := r.db.SelectContext(ctx, &cols, r.db.Rebind(qry), args...); err != nil {
		return nil, err
	}

	return cols, nil
}

func (r *sqlRepository[K, T]) FetchPage(ctx context.Context, req PageRequest) ([]T, error) {
	return r.fetcher.FetchPage(ctx, req)
}

func (r *sqlRepository[K, T]) Iterator(ctx context.Context, options ...StreamOption) *Stream[T] {
	return NewStream[T](ctx, r.fetcher, options...)
}

func (r *sqlRepository[K, T]) Get(ctx context.Context, id K, dest *T, options ...QueryOption) error {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	tb := r.tableDef
	if tb.KeyField == "" {
		return fmt.Errorf("table %s has no key field", tb.FullTableName())
	}

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	columns := strings.Join(tb.ColumnNames(), ",")
	qry := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", columns, tb.FullTableName(), tb.KeyField)
	qry = tx.Rebind(qry)

	if err := tx.GetContext(ctx, dest, qry, id); err != nil {
		return wrapSQLError(err)
	}

	if opt.Tx == nil {
		return tx.Commit()
	}

	return nil
}

func (r *sqlRepository[K, T]) Select(ctx context.Context, filterMap map[string]any, dest *[]T, options ...QueryOption) error {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	filter, argParam, err := r.whereClause(filterMap)
	if err != nil {
		return err
	}

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	orderBy := ""
	if srt := MakeSortClause(opt.Sorter, nil); srt != "" {
		orderBy = " ORDER BY " + srt
	}

	tb := r.tableDef
	columns := strings.Join(tb.ColumnNames(), ",")
	qry := fmt.Sprintf("SELECT %s FROM %s%s%s%s", columns, tb.FullTableName(), filter, orderBy, createLimitOffsetSql(opt.Limit, opt.Offset))
	qry = tx.Rebind(qry)

	if err := tx.SelectContext(ctx, dest, qry, argParam...); err != nil {
		return wrapSQLError(err)
	}

	if opt.Tx == nil {
		return tx.Commit()
	}

	return nil
}

func (r *sqlRepository[K, T]) Count(ctx context.Context, filterMap map[string]any, options ...QueryOption) (int64, error) {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	filter, argParam, err := r.whereClause(filterMap)
	if err != nil {
		return 0, err
	}

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return 0, err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	qry := tx.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.tableDef.FullTableName(), filter))

	var count int64
	if err := tx.GetContext(ctx, &count, qry, argParam...); err != nil {
		return 0, wrapSQLError(err)
	}

	if opt.Tx == nil {
		return count, tx.Commit()
	}

	return count, nil
}

func (r *sqlRepository[K, T]) Insert(ctx context.Context, value T, options ...QueryOption) (K, error) {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	var zeroKey K

	columns, values, err := r.rowValues(value, r.tableDef.Columns)
	if err != nil {
		return zeroKey, err
	}

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return zeroKey, err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	ins, suffix := r.dialect.insertClauses(opt.IgnoreDuplicate)
	qry := fmt.Sprintf("%s INTO %s (%s) VALUES (?)%s", ins, r.tableDef.FullTableName(), strings.Join(columns, ","), suffix)
	qry, args, err := sqlx.In(qry, values)
	if err != nil {
		return zeroKey, fmt.Errorf("failed to expand insert query. %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(qry), args...); err != nil {
		return zeroKey, wrapSQLError(err)
	}

	if opt.Tx == nil {
		if err := tx.Commit(); err != nil {
			return zeroKey, err
		}
	}

	return keyOf[K](r.repository, value), nil
}

func (r *sqlRepository[K, T]) InsertAll(ctx context.Context, values []T, options ...QueryOption) ([]K, error) {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	if len(values) == 0 {
		return nil, nil
	}

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return nil, err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	keys := make([]K, 0, len(values))
	for _, batch := range SplitBatch(values, insertBatchSize) {
		qry, args, err := r.createMultiInsertQuery(batch, opt.IgnoreDuplicate)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(qry), args...); err != nil {
			return nil, wrapSQLError(err)
		}

		for _, v := range batch {
			keys = append(keys, keyOf[K](r.repository, v))
		}
	}

	if opt.Tx == nil {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}

	r.logger.WithField("rows", len(values)).Debug("rows inserted")
	return keys, nil
}

func (r *sqlRepository[K, T]) Delete(ctx context.Context, id []K, options ...QueryOption) error {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	tb := r.tableDef
	if tb.KeyField == "" {
		return fmt.Errorf("table %s has no key field", tb.FullTableName())
	}

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	for _, batch := range SplitBatch(id, 125) {
		qry := fmt.Sprintf("DELETE FROM %s WHERE %s IN (?)", tb.FullTableName(), tb.KeyField)
		qry, args, err := sqlx.In(qry, batch)
		if err != nil {
			return fmt.Errorf("failed to expand delete query. %w", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(qry), args...); err != nil {
			return wrapSQLError(err)
		}
	}

	if opt.Tx == nil {
		return tx.Commit()
	}

	return nil
}

func (r *sqlRepository[K, T]) Begin(ctx context.Context) (Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &sqlTransaction{Tx: tx}, nil
}

func (r *sqlRepository[K, T]) whereClause(filterMap map[string]any) (string, []any, error) {
	for k := range filterMap {
		if !r.modelTagExists(k) {
			return "", nil, fmt.Errorf("invalid filter key: %s", k)
		}
	}

	where, args, err := ParseFilterMapIntoWhereClause(filterMap)
	if err != nil {
		return "", nil, err
	}

	if where != "" {
		where = " WHERE " + where
	}

	return where, args, nil
}

func (r *sqlRepository[K, T]) createTransaction(ctx context.Context, opt *queryOption) (*sqlx.Tx, error) {
	if opt.Tx != nil {
		tx, ok := opt.Tx.(*sqlTransaction)
		if !ok {
			return nil, fmt.Errorf("transaction of type %T cannot be used with a SQL repository", opt.Tx)
		}
		return tx.Tx, nil
	}

	return r.db.BeginTxx(ctx, nil)
}

func (r *sqlRepository[K, T]) createMultiInsertQuery(values []T, ignoreDup bool) (strSql string, args []any, err error) {
	if len(values) == 0 {
		err = fmt.Errorf("values is zero length slice")
		return
	}

	var columns []string
	var insertValues []string
	for _, val := range values {
		var row []any
		columns, row, err = r.rowValues(val, r.tableDef.Columns)
		if err != nil {
			return
		}

		args = append(args, row)
		insertValues = append(insertValues, "(?)")
	}

	ins, suffix := r.dialect.insertClauses(ignoreDup)
	strSql = fmt.Sprintf("%s INTO %s (%s) VALUES %s%s", ins, r.tableDef.FullTableName(), strings.Join(columns, ","), strings.Join(insertValues, ","), suffix)
	strSql, args, err = sqlx.In(strSql, args...)

	return
}
