package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strataconf/strata/internal/adapters/driven/config/file"
	"github.com/strataconf/strata/internal/adapters/driven/storage/factory"
	"github.com/strataconf/strata/internal/core/ports/driven"
	"github.com/strataconf/strata/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// configStore holds application-level configuration (backend choice and
// connection details). Populated lazily before any command runs;
// replaced directly in tests.
var configStore driven.ConfigStore

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Hierarchical configuration store",
	Long: `Strata stores per-module configuration in pluggable backends.

Values are addressed by namespace, category and entity keys, and the
same data can live in local JSON files, SQLite, memory, or a remote
storage server.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute runs the CLI with the given build version.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}

func initConfig(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if configStore != nil {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	store, err := file.NewConfigStore(filepath.Join(home, ".strata"))
	if err != nil {
		return err
	}
	configStore = store
	return nil
}

// openDriver builds the configured storage backend.
func openDriver() (driven.ConfigDriver, error) {
	return factory.New(configStore)
}
