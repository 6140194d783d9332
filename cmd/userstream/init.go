package main

import (
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the user_data table if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, repo, err := openUserRepository(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repo.CreateTable(ctx); err != nil {
			return err
		}

		cols, err := repo.TableColumns(ctx)
		if err != nil {
			return err
		}

		log.WithField("columns", len(cols)).Infof("table %s ready", repo.GetTableDef().FullTableName())
		for _, col := range cols {
			log.Debugf("  %s %s", col.ColumnName, col.DataType)
		}

		return nil
	},
}
