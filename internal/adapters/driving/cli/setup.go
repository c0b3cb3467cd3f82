package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/strataconf/strata/internal/adapters/driven/storage/factory"
	"github.com/strataconf/strata/internal/adapters/driven/storage/remote"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive backend setup",
	Long: `Run an interactive wizard to choose and configure the storage
backend. The choice is written to the application config and used by
every other command.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)
	backends := factory.Backends()

	cmd.Println("Storage Backend Setup")
	cmd.Println("=====================")
	cmd.Println()
	for i, name := range backends {
		cmd.Printf("  %d. %s\n", i+1, name)
	}
	cmd.Println()
	cmd.Printf("Select backend [1]: ")
	choice := parseChoice(readLine(reader), len(backends), 1)
	backend := backends[choice-1]

	if err := configStore.Set(factory.KeyBackend, backend); err != nil {
		return err
	}

	switch backend {
	case factory.BackendJSON, factory.BackendSQLite:
		if err := setupDataDir(cmd, reader); err != nil {
			return err
		}
		if backend == factory.BackendJSON {
			cmd.Print("Reload data changed by other processes? [y/N]: ")
			watch := strings.EqualFold(readLine(reader), "y")
			if err := configStore.Set(factory.KeyWatch, watch); err != nil {
				return err
			}
		}
	case factory.BackendRemote:
		if err := setupRemote(cmd, reader); err != nil {
			return err
		}
	}

	if err := configStore.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cmd.Printf("\nBackend configured: %s\n", backend)
	return nil
}

func setupDataDir(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Print("Data directory [default]: ")
	dir := readLine(reader)
	if dir == "" {
		return nil
	}
	return configStore.Set(factory.KeyDataDir, dir)
}

func setupRemote(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Printf("Server host [%s]: ", remote.DefaultHost)
	host := readLine(reader)
	if host == "" {
		host = remote.DefaultHost
	}
	if err := configStore.Set(factory.KeyHost, host); err != nil {
		return err
	}

	cmd.Print("Server password (type NONE for no password): ")
	password := readPassword()
	cmd.Println()
	if password == "NONE" {
		password = ""
	}
	return configStore.Set(factory.KeyPassword, password)
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
