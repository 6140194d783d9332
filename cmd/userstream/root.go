package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/likearthian/rowstream"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	Driver        string
	DSN           string
	Verbose       bool
	PingRetries   uint64
	MongoDatabase string
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "userstream",
	Short: "Stream the user_data table page by page",
	Long: `userstream creates, seeds and streams the user_data table of a SQL database.
Rows are read lazily, one page at a time, so a stream can be stopped early
without reading the rest of the table.

The connection is given as a driver name and a DSN, either with flags or with
the ROWSTREAM_DRIVER and ROWSTREAM_DSN environment variables.

Examples:
  userstream --driver sqlite --dsn users.db init
  userstream --driver sqlite --dsn users.db seed
  userstream --driver mysql --dsn 'root:secret@tcp(localhost:3306)/prodev' stream --page-size 4 --max 8
  userstream --driver mongodb --dsn mongodb://localhost:27017 stream`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if Verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.WithError(err).Error("command failed")
	}
	return err
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCmd.PersistentFlags().StringVar(&Driver, "driver", envOr("ROWSTREAM_DRIVER", "sqlite"), "Database driver: pgx, postgres, mysql, sqlite or mongodb")
	rootCmd.PersistentFlags().StringVar(&DSN, "dsn", envOr("ROWSTREAM_DSN", "users.db"), "Data source name for the driver")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "Log every page fetch")
	rootCmd.PersistentFlags().Uint64Var(&PingRetries, "ping-retries", 5, "Retries for transient connection failures")
	rootCmd.PersistentFlags().StringVar(&MongoDatabase, "mongo-database", "rowstream", "Database holding the user_data collection (mongodb driver only)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(statsCmd)
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// openDB opens the SQL database and pings it, retrying with exponential
// backoff while the failure looks transient.
func openDB(ctx context.Context) (*sqlx.DB, error) {
	if Driver == "mongodb" {
		return nil, fmt.Errorf("this command needs a SQL driver, got %s", Driver)
	}

	db, err := rowstream.Connect(Driver, DSN)
	if err != nil {
		return nil, err
	}

	ping := func() error {
		err := db.PingContext(ctx)
		if err != nil && !rowstream.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), PingRetries), ctx)
	notify := func(err error, d time.Duration) {
		log.WithError(err).Warnf("database not reachable, retrying in %s", d)
	}

	if err := backoff.RetryNotify(ping, b, notify); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. %w", Driver, err)
	}

	log.WithField("driver", Driver).Debug("connected")
	return db, nil
}

func openUserRepository(ctx context.Context) (*sqlx.DB, rowstream.Repository[string, rowstream.User], error) {
	db, err := openDB(ctx)
	if err != nil {
		return nil, nil, err
	}

	repo, err := rowstream.CreateSQLRepository[string, rowstream.User](db, rowstream.WithLogger[rowstream.User](log))
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return db, repo, nil
}
