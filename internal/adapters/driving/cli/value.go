package cli

import (
	"context"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/strataconf/strata/internal/core/services"
)

var (
	valuePrimaryKey []string
	valueInstance   string
)

var getCmd = &cobra.Command{
	Use:   "get <namespace> <category> [key...]",
	Short: "Read a configuration value",
	Long: `Reads a value from the configured backend.

The namespace names the owning module, the category names the record
kind (GLOBAL, GUILD, MEMBER, ...), and trailing keys walk into the
record. Use --pkey to address one entity within the category.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGet,
}

var setCmd = &cobra.Command{
	Use:   "set <namespace> <category> <value> [key...]",
	Short: "Write a configuration value",
	Long: `Writes a value into the configured backend.

The value is parsed as JSON; anything that does not parse is stored as
a plain string.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runSet,
}

var clearCmd = &cobra.Command{
	Use:   "clear <namespace> <category> [key...]",
	Short: "Delete a value or subtree",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runClear,
}

var incrCmd = &cobra.Command{
	Use:   "incr <namespace> <category> <delta> <key...>",
	Short: "Atomically add to a numeric value",
	Args:  cobra.MinimumNArgs(4),
	RunE:  runIncr,
}

var toggleValue string

var toggleCmd = &cobra.Command{
	Use:   "toggle <namespace> <category> <key...>",
	Short: "Atomically flip a boolean value",
	Long: `Flips a boolean value in place. Pass --value true or --value
false to set it outright instead of flipping.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runToggle,
}

func init() {
	for _, cmd := range []*cobra.Command{getCmd, setCmd, clearCmd, incrCmd, toggleCmd} {
		cmd.Flags().StringSliceVar(&valuePrimaryKey, "pkey", nil, "primary key addressing one entity")
		cmd.Flags().StringVar(&valueInstance, "instance", "0", "namespace instance id")
		rootCmd.AddCommand(cmd)
	}
	toggleCmd.Flags().StringVar(&toggleValue, "value", "", "set to true or false instead of flipping")
}

func openStore(namespace string) (*services.Store, func(), error) {
	driver, err := openDriver()
	if err != nil {
		return nil, nil, err
	}
	store, err := services.NewStore(driver, namespace, services.WithInstanceID(valueInstance))
	if err != nil {
		driver.Close() //nolint:errcheck // best effort on failed open
		return nil, nil, err
	}
	return store, func() { driver.Close() }, nil //nolint:errcheck // close on exit
}

func printJSON(cmd *cobra.Command, value any) error {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	store, done, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer done()

	value, err := store.Get(context.Background(), args[1], valuePrimaryKey, args[2:]...)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}
	return printJSON(cmd, value)
}

func runSet(cmd *cobra.Command, args []string) error {
	store, done, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer done()

	var value any
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(args[2]), &value); err != nil {
		value = args[2]
	}

	stored, err := store.Set(context.Background(), args[1], valuePrimaryKey, value, args[3:]...)
	if err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return printJSON(cmd, stored)
}

func runClear(cmd *cobra.Command, args []string) error {
	store, done, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer done()

	if err := store.Clear(context.Background(), args[1], valuePrimaryKey, args[2:]...); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	cmd.Println("Cleared.")
	return nil
}

func runIncr(cmd *cobra.Command, args []string) error {
	delta, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid delta %q: %w", args[2], err)
	}
	store, done, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer done()

	result, err := store.Increment(context.Background(), args[1], valuePrimaryKey, delta, args[3:]...)
	if err != nil {
		return fmt.Errorf("increment failed: %w", err)
	}
	cmd.Printf("%g\n", result)
	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	var target *bool
	if toggleValue != "" {
		parsed, err := strconv.ParseBool(toggleValue)
		if err != nil {
			return fmt.Errorf("invalid --value %q: %w", toggleValue, err)
		}
		target = &parsed
	}
	store, done, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer done()

	result, err := store.Toggle(context.Background(), args[1], valuePrimaryKey, target, args[2:]...)
	if err != nil {
		return fmt.Errorf("toggle failed: %w", err)
	}
	cmd.Printf("%t\n", result)
	return nil
}
