package rowstream

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"reflect"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type sqlTransaction struct {
	Tx *sqlx.Tx
}

func (st *sqlTransaction) Rollback(_ context.Context) error {
	return st.Tx.Rollback()
}

func (st *sqlTransaction) Commit(_ context.Context) error {
	return st.Tx.Commit()
}

func wrapSQLError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w. %s", ErrKeyNotFound, err.Error())
	case isDuplicateKey(err):
		return fmt.Errorf("%w. %s", ErrKeyAlreadyExists, err.Error())
	}

	return err
}

func storeUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgerrcode.UniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsTransient reports whether err looks like a connection-level failure that
// may succeed when retried. The stream never retries; callers may.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientPgCode(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isTransientPgCode(string(pqErr.Code))
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1040, 1205, 1213: // too many connections, lock wait timeout, deadlock
			return true
		}
	}

	return false
}

// isColumnMismatch reports whether err says the table's columns do not match
// the ones a query named or the types it expected.
func isColumnMismatch(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isColumnMismatchPgCode(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isColumnMismatchPgCode(string(pqErr.Code))
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1054 // unknown column
	}

	msg := err.Error()
	return strings.Contains(msg, "no such column") || strings.Contains(msg, "datatype mismatch")
}

func isColumnMismatchPgCode(code string) bool {
	return code == pgerrcode.UndefinedColumn ||
		code == pgerrcode.DatatypeMismatch ||
		code == pgerrcode.InvalidTextRepresentation
}

func isTransientPgCode(code string) bool {
	return pgerrcode.IsConnectionException(code) ||
		code == pgerrcode.CannotConnectNow ||
		code == pgerrcode.TooManyConnections ||
		code == pgerrcode.SerializationFailure
}

// MakeSortClause turns field names prefixed with "-" (descending) or "+"
// (ascending, the default) into an ORDER BY list.
func MakeSortClause(sorter []string, sortFieldMap map[string]string) string {
	if len(sorter) == 0 {
		return ""
	}

	var srt []string
	for _, s := range sorter {
		if s == "" {
			continue
		}

		op := ""
		field := strings.ToLower(s)
		if s[:1] == "-" || s[:1] == "+" {
			op = s[:1]
			field = strings.ToLower(s[1:])
		}

		if op == "-" {
			op = "DESC"
		} else {
			op = "ASC"
		}

		if sortFieldMap != nil {
			if mf, ok := sortFieldMap[field]; ok {
				field = mf
			}
		}

		srt = append(srt, fmt.Sprintf("%s %s", field, op))
	}

	return strings.Join(srt, ",")
}

// createLimitOffsetSql renders the paging clause. A non-positive limit means
// no paging at all.
func createLimitOffsetSql(limit int, offset int64) string {
	if limit <= 0 {
		return ""
	}

	if offset < 0 {
		offset = 0
	}

	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

type FilterNull interface {
	IsNull() bool
}

type filterNull bool

func (fn filterNull) IsNull() bool {
	return bool(fn)
}

func FilterNullFrom(isNull bool) FilterNull {
	return filterNull(isNull)
}

type FilterStringContains interface {
	Contains() string
}

type filterStringContains string

func (fs filterStringContains) Contains() string {
	return fmt.Sprintf("%%%s%%", string(fs))
}

func FilterStringContainsFrom(str string) FilterStringContains {
	return filterStringContains(str)
}

// ParseFilterMapIntoWhereClause builds an AND-joined predicate from filterMap.
// Slice values become IN lists, FilterNull becomes IS [NOT] NULL and
// FilterStringContains becomes LIKE.
func ParseFilterMapIntoWhereClause(filterMap map[string]any) (whereClause string, args []any, err error) {
	keys := make([]string, 0, len(filterMap))
	for k := range filterMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var where []string
	for _, k := range keys {
		val := filterMap[k]

		if fnull, ok := val.(FilterNull); ok {
			isNot := ""
			if !fnull.IsNull() {
				isNot = "NOT "
			}
			where = append(where, fmt.Sprintf("%s IS %sNULL", k, isNot))
			continue
		}

		if fcontain, ok := val.(FilterStringContains); ok {
			where = append(where, fmt.Sprintf("%s LIKE ?", k))
			args = append(args, fcontain.Contains())
			continue
		}

		vval := reflect.ValueOf(val)
		if vval.Kind() != reflect.Slice {
			where = append(where, k+" = ?")
			args = append(args, val)
			continue
		}

		f, arg, err := parameterizedFilterCriteriaSlice(k, val)
		if err != nil {
			return "", nil, err
		}

		where = append(where, f)
		args = append(args, arg)
	}

	if len(where) == 0 {
		return "", nil, nil
	}

	return sqlx.In(strings.Join(where, " AND "), args...)
}

func parameterizedFilterCriteriaSlice(fieldname string, values any) (string, any, error) {
	s := reflect.ValueOf(values)
	if s.Kind() != reflect.Slice {
		return "", nil, fmt.Errorf("expecting slice as values, got %s", s.Kind().String())
	}

	if s.Len() == 0 {
		return "", nil, fmt.Errorf("cannot use empty slice to parameterized %s", fieldname)
	}

	if s.Len() > 1 {
		return fieldname + " IN (?)", values, nil
	}

	return fieldname + " = ?", s.Index(0).Interface(), nil
}
