package main

import (
	"collection-route-service/internal/adapters/repositories"
	"collection-route-service/internal/config"
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/db"
	"collection-route-service/internal/ports"
	"collection-route-service/internal/services"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:          "dbtool",
		Short:        "Schema, seed and status helpers for the collection route database",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "configuration file (yaml or json)")
	root.AddCommand(initCmd(), seedCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore loads config, connects, and makes sure the schema exists.
func openStore(cmd *cobra.Command) (*repositories.SQLStore, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	dialect, err := repositories.ParseDialect(cfg.Database.Driver)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if err := repositories.InitSchema(conn, dialect); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return repositories.NewSQLStore(conn, dialect), cfg, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema and the default severity threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.DB.Close()

			setting := repositories.NewThresholdSetting(store, cfg.Dispatch.DefaultThreshold)
			if err := setting.EnsureDefault(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s).\n", cfg.Database.Driver)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load drivers, incidents and settings from a JSON or YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("seed: --file is required")
			}
			seed, err := repositories.LoadSeed(path)
			if err != nil {
				return err
			}
			store, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.DB.Close()

			if err := seed.Apply(cmd.Context(), store, time.Now().UTC()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d drivers and %d incidents.\n", len(seed.Drivers), len(seed.Incidents))
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "data/seeds/demo.yaml", "seed file")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print per-zone severity sums, planned routes and the current threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.DB.Close()

			ctx := cmd.Context()
			threshold, err := repositories.NewThresholdSetting(store, cfg.Dispatch.DefaultThreshold).SeverityThreshold(ctx)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Zone", "Pending", "Validated", "Assigned", "Planned routes", "Threshold"})
			for _, zone := range domain.Zones() {
				row, err := zoneRow(ctx, store, zone)
				if err != nil {
					return err
				}
				tw.AppendRow(append(row, threshold))
			}
			tw.Render()
			return nil
		},
	}
}

func zoneRow(ctx context.Context, store ports.Queries, zone domain.Zone) (table.Row, error) {
	row := table.Row{string(zone)}
	for _, st := range []domain.IncidentState{domain.IncidentPending, domain.IncidentValidated, domain.IncidentAssigned} {
		sum, err := services.SeveritySum(ctx, store, zone, st)
		if err != nil {
			return nil, err
		}
		row = append(row, sum)
	}
	planned, err := store.ListRoutes(ctx, ports.RouteFilter{Zone: zone, States: []domain.RouteState{domain.RoutePlanned}})
	if err != nil {
		return nil, fmt.Errorf("status: zone %s: %w", zone, err)
	}
	return append(row, len(planned)), nil
}
