package main

import (
	"context"
	"fmt"
	"io"

	"github.com/likearthian/rowstream"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
)

var (
	StreamPageSize int
	StreamMax      int
	StreamOffset   int64
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream users one at a time, fetching one page per round trip",
	Long: `Stream users from user_data. Pages of --page-size rows are fetched only when
the previous page has been printed, and --max stops the stream early without
fetching any further page.

Examples:
  userstream stream --page-size 4
  userstream stream --page-size 3 --max 4 -v`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().IntVar(&StreamPageSize, "page-size", rowstream.DefaultPageSize, "Rows fetched per page")
	streamCmd.Flags().IntVar(&StreamMax, "max", 0, "Stop after this many rows (0 streams everything)")
	streamCmd.Flags().Int64Var(&StreamOffset, "offset", 0, "Offset of the first page")
}

func runStream(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var fetcher rowstream.PageFetcher[rowstream.User]
	if Driver == "mongodb" {
		client, err := mongo.Connect(ctx, mongoOptions.Client().ApplyURI(DSN))
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		coll := client.Database(MongoDatabase).Collection("user_data")
		fetcher = rowstream.NewMongoPageFetcher[rowstream.User](coll, rowstream.WithSorter("user_id"))
	} else {
		db, repo, err := openUserRepository(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		fetcher = repo
	}

	stream := rowstream.NewStream[rowstream.User](ctx, loggingFetcher(fetcher, log),
		rowstream.WithPageSize(StreamPageSize),
		rowstream.WithStartOffset(StreamOffset),
	)
	defer stream.Close()

	n, err := printUsers(cmd.OutOrStdout(), stream, StreamMax)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"rows": n, "state": stream.State()}).Info("stream finished")
	return nil
}

// printUsers writes rows until the stream ends or max rows have been written.
func printUsers(out io.Writer, stream *rowstream.Stream[rowstream.User], max int) (int, error) {
	n := 0
	for user, err := range stream.All() {
		if err != nil {
			return n, err
		}

		n++
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%d\n", n, user.UserID, user.Name, user.Email, user.Age)

		if max > 0 && n >= max {
			break
		}
	}

	return n, nil
}

func loggingFetcher(next rowstream.PageFetcher[rowstream.User], log logrus.FieldLogger) rowstream.PageFetcher[rowstream.User] {
	return rowstream.PageFetcherFunc[rowstream.User](func(ctx context.Context, req rowstream.PageRequest) ([]rowstream.User, error) {
		rows, err := next.FetchPage(ctx, req)
		entry := log.WithFields(logrus.Fields{"offset": req.Offset, "limit": req.Limit})
		if err != nil {
			entry.WithError(err).Debug("page fetch failed")
			return nil, err
		}

		entry.WithField("rows", len(rows)).Debug("page fetched")
		return rows, nil
	})
}
