package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List namespaces with stored data",
	Args:  cobra.NoArgs,
	RunE:  runNamespaces,
}

func init() {
	rootCmd.AddCommand(namespacesCmd)
}

func runNamespaces(cmd *cobra.Command, _ []string) error {
	driver, err := openDriver()
	if err != nil {
		return err
	}
	defer driver.Close() //nolint:errcheck // close on exit

	count := 0
	for ns, err := range driver.Namespaces(context.Background()) {
		if err != nil {
			return fmt.Errorf("listing namespaces: %w", err)
		}
		cmd.Printf("%s (instance %s)\n", ns.Name, ns.InstanceID)
		count++
	}
	if count == 0 {
		cmd.Println("No namespaces stored.")
	}
	return nil
}
