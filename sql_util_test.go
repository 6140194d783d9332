package rowstream

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestMakeSortClause(t *testing.T) {
	require.Empty(t, MakeSortClause(nil, nil))
	require.Equal(t, "name DESC,age ASC,email_address ASC",
		MakeSortClause([]string{"-name", "+age", "email"}, map[string]string{"email": "email_address"}))
}

func TestCreateLimitOffsetSql(t *testing.T) {
	require.Equal(t, " LIMIT 4 OFFSET 8", createLimitOffsetSql(4, 8))
	require.Equal(t, " LIMIT 4 OFFSET 0", createLimitOffsetSql(4, 0))
	require.Equal(t, " LIMIT 4 OFFSET 0", createLimitOffsetSql(4, -2))
	require.Empty(t, createLimitOffsetSql(0, 8))
}

func TestParseFilterMapIntoWhereClause(t *testing.T) {
	where, args, err := ParseFilterMapIntoWhereClause(map[string]any{
		"age":   30,
		"email": FilterNullFrom(false),
		"name":  FilterStringContainsFrom("an"),
	})
	require.NoError(t, err)
	require.Equal(t, "age = ? AND email IS NOT NULL AND name LIKE ?", where)
	require.Equal(t, []any{30, "%an%"}, args)

	where, args, err = ParseFilterMapIntoWhereClause(map[string]any{"age": []int{1, 2}})
	require.NoError(t, err)
	require.Equal(t, "age IN (?, ?)", where)
	require.Equal(t, []any{1, 2}, args)

	where, args, err = ParseFilterMapIntoWhereClause(map[string]any{"user_id": []string{"a"}})
	require.NoError(t, err)
	require.Equal(t, "user_id = ?", where)
	require.Equal(t, []any{"a"}, args)

	_, _, err = ParseFilterMapIntoWhereClause(map[string]any{"age": []int{}})
	require.Error(t, err)

	where, args, err = ParseFilterMapIntoWhereClause(nil)
	require.NoError(t, err)
	require.Empty(t, where)
	require.Empty(t, args)
}

func TestWrapSQLError(t *testing.T) {
	require.Nil(t, wrapSQLError(nil))
	require.ErrorIs(t, wrapSQLError(sql.ErrNoRows), ErrKeyNotFound)
	require.ErrorIs(t, wrapSQLError(&pgconn.PgError{Code: pgerrcode.UniqueViolation}), ErrKeyAlreadyExists)
	require.ErrorIs(t, wrapSQLError(&pq.Error{Code: pgerrcode.UniqueViolation}), ErrKeyAlreadyExists)
	require.ErrorIs(t, wrapSQLError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), ErrKeyAlreadyExists)

	other := errors.New("syntax error")
	require.Equal(t, other, wrapSQLError(other))
}

func TestStoreUnavailableKeepsCause(t *testing.T) {
	err := storeUnavailable(driver.ErrBadConn)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, err, driver.ErrBadConn)
}

func TestIsTransient(t *testing.T) {
	transient := []error{
		driver.ErrBadConn,
		sql.ErrConnDone,
		mysql.ErrInvalidConn,
		context.DeadlineExceeded,
		fmt.Errorf("ping: %w", driver.ErrBadConn),
		&pgconn.PgError{Code: pgerrcode.ConnectionFailure},
		&pgconn.PgError{Code: pgerrcode.TooManyConnections},
		&pq.Error{Code: pgerrcode.CannotConnectNow},
		&mysql.MySQLError{Number: 1213},
	}
	for _, err := range transient {
		require.True(t, IsTransient(err), "%v", err)
	}

	permanent := []error{
		nil,
		errors.New("no such table"),
		&pgconn.PgError{Code: pgerrcode.InvalidPassword},
		&pq.Error{Code: pgerrcode.UniqueViolation},
		&mysql.MySQLError{Number: 1045},
	}
	for _, err := range permanent {
		require.False(t, IsTransient(err), "%v", err)
	}
}

func TestIsColumnMismatch(t *testing.T) {
	mismatch := []error{
		&pgconn.PgError{Code: pgerrcode.UndefinedColumn},
		&pq.Error{Code: pgerrcode.DatatypeMismatch},
		&mysql.MySQLError{Number: 1054, Message: "Unknown column 'age' in 'field list'"},
		errors.New("SQL logic error: no such column: age (1)"),
	}
	for _, err := range mismatch {
		require.True(t, isColumnMismatch(err), "%v", err)
	}

	other := []error{
		driver.ErrBadConn,
		context.Canceled,
		errors.New("sql: database is closed"),
		&pgconn.PgError{Code: pgerrcode.UndefinedTable},
		&mysql.MySQLError{Number: 1146},
	}
	for _, err := range other {
		require.False(t, isColumnMismatch(err), "%v", err)
	}
}

func TestSplitBatch(t *testing.T) {
	require.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, SplitBatch([]int{1, 2, 3, 4, 5}, 2))
	require.Equal(t, [][]int{{1, 2}}, SplitBatch([]int{1, 2}, 5))
	require.Nil(t, SplitBatch([]int{}, 2))
}
