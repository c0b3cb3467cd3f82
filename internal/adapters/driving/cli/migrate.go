package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/strataconf/strata/internal/adapters/driven/storage/factory"
	"github.com/strataconf/strata/internal/core/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <from-backend> <to-backend>",
	Short: "Copy all stored data between backends",
	Long: fmt.Sprintf(`Copies every namespace from one backend to another.

Both backends read their connection details from the application
config. Available backends: %v.`, factory.Backends()),
	Args: cobra.ExactArgs(2),
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	source, err := factory.NewBackend(configStore, args[0])
	if err != nil {
		return fmt.Errorf("opening source backend: %w", err)
	}
	defer source.Close() //nolint:errcheck // close on exit

	target, err := factory.NewBackend(configStore, args[1])
	if err != nil {
		return fmt.Errorf("opening target backend: %w", err)
	}
	defer target.Close() //nolint:errcheck // close on exit

	cmd.Printf("Migrating %s -> %s...\n", args[0], args[1])

	report, err := services.NewMigrator(source, target, nil).Run(context.Background())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	cmd.Printf("Migration %s complete: %d namespaces, %d categories in %s.\n",
		report.RunID, report.Namespaces, report.Categories,
		report.Finished.Sub(report.Started).Round(time.Millisecond))
	return nil
}
