// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	store "github.com/mdhender/datvault/stores/sqlite"
	"github.com/spf13/cobra"
)

func cmdBulk() *cobra.Command {
	var dbPath = "catalog.db"
	var threads = 1
	var cmd = &cobra.Command{
		Use:   "bulk",
		Short: "bulk export/import catalog records as CSV",
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", dbPath, "catalog database file")
	cmd.PersistentFlags().IntVarP(&threads, "threads", "w", threads, "SQLite auxiliary thread hint")

	cmd.AddCommand(&cobra.Command{
		Use:          "export <file>",
		Short:        "export all records to a CSV file",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := store.NewCatalogStoreWithConfig(store.StoreConfig{Path: dbPath})
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.ExportCSV(ctx, args[0], threads)
			if err != nil {
				return err
			}
			log.Printf("%s: exported %d records\n", args[0], n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "import <file>",
		Short:        "import records from a CSV file",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := store.NewCatalogStoreWithConfig(store.StoreConfig{Path: dbPath, InitSchema: true})
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.ImportCSV(ctx, args[0], threads)
			if err != nil {
				return err
			}
			log.Printf("%s: imported %d records\n", args[0], n)
			return nil
		},
	})

	return cmd
}
