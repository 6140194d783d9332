package rowstream

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	_ "github.com/glebarez/go-sqlite"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type PGConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	SSLMode  string
}

func (c PGConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}

	return u.String()
}

// ConnectPostgresql opens a pool through the pgx stdlib driver. Like sql.Open
// it does not contact the server.
func ConnectPostgresql(config PGConfig) (*sqlx.DB, error) {
	return sqlx.Open("pgx", config.DSN())
}

type MySQLConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (c MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, c.Port)
	cfg.DBName = c.Database
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.ParseTime = true

	return cfg.FormatDSN()
}

func ConnectMySQL(config MySQLConfig) (*sqlx.DB, error) {
	return sqlx.Open("mysql", config.DSN())
}

type SQLiteConfig struct {
	// Path is the database file, or ":memory:".
	Path string
}

// ConnectSQLite opens a SQLite database. In-memory databases are private to a
// connection, so the pool is capped at one connection.
func ConnectSQLite(config SQLiteConfig) (*sqlx.DB, error) {
	return Connect("sqlite", config.Path)
}

// Connect opens driverName with dsn. Supported drivers are pgx, postgres,
// mysql and sqlite.
func Connect(driverName, dsn string) (*sqlx.DB, error) {
	if _, err := DialectOf(driverName); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database. %w", driverName, err)
	}

	if strings.HasPrefix(driverName, "sqlite") && (dsn == "" || strings.Contains(dsn, ":memory:")) {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}
