package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harborline/hscode/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required tables and
indexes before the first classify or serve run.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	// initStorage already migrates; all that remains is reporting.
	store, err := initStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = store.Close() }()

	count, err := store.EntryCount(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Database schema is at version %d.\n", storage.ExpectedSchemaVersion)
	fmt.Printf("Catalog entries: %d\n", count)
	if count == 0 {
		fmt.Println("The catalog is empty; run \"hscode catalog import <file>\" to load one.")
	}
	return nil
}
