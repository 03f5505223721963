package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	duckdbPath string
	dbURL      string
	verbose    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "epcisctl",
	Short: "Inspect and run EPCIS event queries",
	Long: `epcisctl translates EPCIS query parameters and runs them against a store.

Parameters are given as name=value arguments; multiple values are separated
by "|", exactly as in the REST query string.

Examples:
  epcisctl explain 'EQ_bizStep=shipping|receiving' orderBy=eventTime
  epcisctl capture --duckdb events.db request.json
  epcisctl query --duckdb events.db MATCH_epc='urn:epc:id:sgtin:*' perPage=10
  epcisctl query --db-url postgres://localhost/epcis EQ_userID=alice`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&duckdbPath, "duckdb", "", "DuckDB database file")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "Postgres connection URL (overrides --duckdb)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(captureCmd)
}
