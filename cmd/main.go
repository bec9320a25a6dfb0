package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"libraryledger/internal/config"
	"libraryledger/internal/database"
)

func main() {
	root := &cobra.Command{
		Use:           "library-ledger",
		Short:         "Library inventory and loan ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())

	if err := root.Execute(); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// connect loads the configuration and opens the database.
func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
