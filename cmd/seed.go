package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"libraryledger/internal/database"
	"libraryledger/internal/seed"
	"libraryledger/internal/services"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Wipe all tables and load the demo data set",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			if err := database.AutoMigrate(db); err != nil {
				return err
			}

			sum, err := seed.Run(cmd.Context(), db, services.New(db))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Categories: %d\n", sum.Categories)
			fmt.Fprintf(out, "Books (active): %d\n", sum.ActiveBooks)
			fmt.Fprintf(out, "Books (total): %d\n", sum.TotalBooks)
			fmt.Fprintf(out, "Readers: %d\n", sum.Readers)
			fmt.Fprintf(out, "Loans: %d\n", sum.Loans)
			fmt.Fprintf(out, "Dế Mèn available: %d\n", sum.DeMenAvailable)
			fmt.Fprintf(out, "Số Đỏ fine: %d, available: %d\n", sum.SoDoFine, sum.SoDoAvailable)
			fmt.Fprintf(out, "Doraemon Tập 1 loans: %d\n", sum.DoraemonLoanCount)
			return nil
		},
	}
}
