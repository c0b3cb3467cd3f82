package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strataconf/strata/internal/core/domain"
)

var wipeYes bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete ALL stored configuration data",
	Long: `Deletes every namespace from the configured backend.

This is irreversible. Without --yes the command asks for confirmation
first.`,
	Args: cobra.NoArgs,
	RunE: runWipe,
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(wipeCmd)
}

func runWipe(cmd *cobra.Command, _ []string) error {
	if !wipeYes {
		cmd.Print("This deletes ALL stored data. Type 'yes' to continue: ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n') //nolint:errcheck // CLI prompt, error ignored for UX
		if strings.TrimSpace(input) != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	driver, err := openDriver()
	if err != nil {
		return err
	}
	defer driver.Close() //nolint:errcheck // close on exit

	if err := driver.DeleteAllData(context.Background(), true); err != nil {
		if errors.Is(err, domain.ErrConfirmationRequired) {
			return errors.New("backend refused the wipe without confirmation")
		}
		return fmt.Errorf("wipe failed: %w", err)
	}
	cmd.Println("All data deleted.")
	return nil
}
