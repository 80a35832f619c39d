package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vjranagit/drought/pkg/table"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var showFormat string

//nolint:gochecknoglobals // Cobra commands are typically global
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Inspect stored tables",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Keep store logs out of command output unless asked for
		if !cmd.Flags().Changed("log-level") {
			logger.SetLevel(logrus.ErrorLevel)
		}
		return nil
	},
}

//nolint:gochecknoglobals // Cobra commands are typically global
var tablesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tables with their shape",
	RunE:  runTablesList,
}

//nolint:gochecknoglobals // Cobra commands are typically global
var tablesShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print a stored table",
	Args:  cobra.ExactArgs(1),
	RunE:  runTablesShow,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.AddCommand(tablesListCmd, tablesShowCmd)
	tablesShowCmd.Flags().StringVar(&showFormat, "format", "csv", "output format (csv, json)")
}

func runTablesList(cmd *cobra.Command, _ []string) error {
	_, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	keys, err := store.Keys(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tROWS\tCOLUMNS")
	for _, key := range keys {
		t, err := store.Load(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", key, err)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", key, t.Len(), len(t.Columns()))
	}
	return w.Flush()
}

func runTablesShow(cmd *cobra.Command, args []string) error {
	_, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	t, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return writeTable(cmd.OutOrStdout(), t, showFormat)
}

func writeTable(w io.Writer, t *table.Table, format string) error {
	switch format {
	case "csv":
		return table.WriteCSV(w, t)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func readTable(path string) (*table.Table, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied input path
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return table.ReadCSV(f)
}
