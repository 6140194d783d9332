package rowstream

import (
	"fmt"
	"reflect"
	"strings"
)

// Dialect selects the SQL flavour used for DDL and insert statements. Query
// placeholders are handled by sqlx.Rebind.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// DialectOf maps a database/sql driver name to its dialect.
func DialectOf(driverName string) (Dialect, error) {
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	case "mysql":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driverName)
	}
}

func (d Dialect) createTableDDL(tb SQLTableDef) (string, error) {
	var ddlCols []string
	for _, col := range tb.Columns {
		dtype := d.columnType(col)
		if dtype == "UNKNOWN" {
			return "", fmt.Errorf("unknown datatype for Go type %s in column %s", col.Type, col.Name)
		}

		var ddlCol strings.Builder
		ddlCol.WriteString(fmt.Sprintf("%s %s", col.Name, dtype))

		if !col.AllowNull {
			ddlCol.WriteString(" NOT NULL")
		}

		if col.IsKey {
			ddlCol.WriteString(" PRIMARY KEY")
		}

		ddlCols = append(ddlCols, ddlCol.String())
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tb.FullTableName(), strings.Join(ddlCols, ", ")), nil
}

func (d Dialect) columnType(col ColumnInfo) string {
	typ := col.Type
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	switch typ.Kind() {
	case reflect.String:
		if d == DialectSQLite || (col.Size == 0 && d == DialectPostgres) {
			return "TEXT"
		}
		if col.Size == 0 {
			return "VARCHAR(255)"
		}
		return fmt.Sprintf("VARCHAR(%d)", col.Size)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		if d == DialectSQLite {
			return "INTEGER"
		}
		return "INT"
	case reflect.Int64, reflect.Uint64:
		if d == DialectSQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case reflect.Float32, reflect.Float64:
		switch d {
		case DialectPostgres:
			return "DOUBLE PRECISION"
		case DialectMySQL:
			return "DOUBLE"
		}
		return "REAL"
	case reflect.Bool:
		if d == DialectSQLite {
			return "INTEGER"
		}
		return "BOOLEAN"
	case reflect.Struct:
		switch typ.Name() {
		case "Time", "NullTime":
			return "TIMESTAMP"
		case "NullString", "String":
			return d.columnType(ColumnInfo{Type: reflect.TypeOf(""), Size: col.Size})
		case "NullFloat64", "Float":
			return d.columnType(ColumnInfo{Type: reflect.TypeOf(float64(0))})
		case "NullInt32", "NullInt64", "Int":
			return d.columnType(ColumnInfo{Type: reflect.TypeOf(int64(0))})
		}
	}

	return "UNKNOWN"
}

// insertClauses returns the statement prefix and suffix of an INSERT that
// optionally ignores duplicate keys.
func (d Dialect) insertClauses(ignoreDuplicate bool) (prefix, suffix string) {
	if !ignoreDuplicate {
		return "INSERT", ""
	}

	switch d {
	case DialectMySQL:
		return "INSERT IGNORE", ""
	case DialectSQLite:
		return "INSERT OR IGNORE", ""
	default:
		return "INSERT", " ON CONFLICT DO NOTHING"
	}
}
