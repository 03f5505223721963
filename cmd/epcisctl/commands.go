package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
	"github.com/PratikDhanave/epcis-query-service/internal/store"
)

var explainCmd = &cobra.Command{
	Use:   "explain [name=value]...",
	Short: "Print the SQL a parameter list translates to",
	RunE:  runExplain,
}

var queryCmd = &cobra.Command{
	Use:   "query [name=value]...",
	Short: "Run a parameter list against a store and print the events as JSON",
	RunE:  runQuery,
}

var captureCmd = &cobra.Command{
	Use:   "capture <request.json>",
	Short: "Store a capture request document",
	Args:  cobra.ExactArgs(1),
	RunE:  runCapture,
}

func runExplain(cmd *cobra.Command, args []string) error {
	plan, err := buildPlan(args)
	if err != nil {
		return err
	}
	stmt, params, err := store.Explain(plan)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, stmt)
	for i, p := range params {
		fmt.Fprintf(out, "-- $%d = %#v\n", i+1, p)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	plan, err := buildPlan(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.Query(ctx, plan)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d events\n", len(events))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(models.QueryResponse{QueryName: "SimpleEventQuery", EventList: events})
}

func runCapture(cmd *cobra.Command, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", args[0])
	}
	var req models.Request
	if err := json.Unmarshal(b, &req); err != nil {
		return errors.Wrapf(err, "failed to decode %s", args[0])
	}

	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	resp, err := st.Capture(ctx, &req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "captured %d events as %s\n", resp.EventCount, resp.CaptureID)
	return nil
}

func openStore(ctx context.Context) (store.EventStore, error) {
	if dbURL != "" {
		db, err := store.NewPostgresStore(ctx, dbURL)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}
	if duckdbPath == "" {
		return nil, errors.New("one of --duckdb or --db-url is required")
	}
	return store.NewDuckStore(ctx, duckdbPath)
}

func buildPlan(args []string) (*query.Plan, error) {
	params, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	return query.Build(params)
}

// parseArgs turns name=value arguments into parameters, keeping their order.
func parseArgs(args []string) ([]query.Parameter, error) {
	params := make([]query.Parameter, 0, len(args))
	for _, arg := range args {
		name, value, _ := strings.Cut(arg, "=")
		if name == "" {
			return nil, errors.Errorf("malformed parameter %q", arg)
		}
		params = append(params, query.ParseParameter(name, value))
	}
	return params, nil
}
