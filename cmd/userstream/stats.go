package main

import (
	"fmt"

	"github.com/likearthian/rowstream"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show user count and age statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, repo, err := openUserRepository(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := rowstream.QueryUserStats(ctx, db, repo.GetTableDef().FullTableName())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total users: %d\n", stats.TotalUsers)
		fmt.Fprintf(out, "Average age: %.1f\n", stats.AvgAge)
		fmt.Fprintf(out, "Age range: %d - %d\n", stats.MinAge, stats.MaxAge)
		return nil
	},
}
