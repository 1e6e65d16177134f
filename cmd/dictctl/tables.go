package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/datasense/internal/infra/sampler"
)

var tablesCmd = &cobra.Command{
	Use:   "tables <dsn>",
	Short: "List the tables of a PostgreSQL datasource",
	Args:  cobra.ExactArgs(1),
	RunE:  runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	pg, err := sampler.ConnectPostgres(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer pg.Close()

	tables, err := pg.ListTables(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	if len(tables) == 0 {
		return fmt.Errorf("no accessible tables found in %s", sampler.DatabaseName(args[0]))
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tCOLUMNS")
	for _, t := range tables {
		fmt.Fprintf(tw, "%s\t%d\n", t.Name, t.ColumnCount)
	}
	return tw.Flush()
}
