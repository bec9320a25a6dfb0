package main

import (
	"github.com/spf13/cobra"

	"libraryledger/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			return database.AutoMigrate(db)
		},
	}
}
