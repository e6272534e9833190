//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-salesdw.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesdw/internal/config"
	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/pkg/version"
)

var (
	// Global flags
	cfgFile         string
	sourceConn      string
	sourceDriver    string
	warehouseConn   string
	warehouseDriver string
	logLevel        string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-salesdw",
		Short: "Sales data warehouse loader",
		Long: `pgedge-salesdw moves sales data from an AdventureWorks-style
operational database into a star-schema warehouse.

Products, customers, salespeople, territories and orders are loaded as
dimensions with stable surrogate keys; order lines become rows of the
fact_sales table. Runs are idempotent: an order line is only ever
loaded once unless --fact-conflict=replace is given.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-salesdw.yaml)")
	rootCmd.PersistentFlags().StringVar(&sourceConn, "source", "",
		"source database connection string")
	rootCmd.PersistentFlags().StringVar(&sourceDriver, "source-driver", "",
		"source driver: postgres, sqlserver, sqlite")
	rootCmd.PersistentFlags().StringVar(&warehouseConn, "warehouse", "",
		"warehouse database connection string")
	rootCmd.PersistentFlags().StringVar(&warehouseDriver, "warehouse-driver", "",
		"warehouse driver: postgres, sqlite")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(datesCmd)
	rootCmd.AddCommand(dimensionsCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if sourceConn != "" {
		cfg.Source.Connection = sourceConn
	}
	if sourceDriver != "" {
		cfg.Source.Driver = sourceDriver
	}
	if warehouseConn != "" {
		cfg.Warehouse.Connection = warehouseConn
	}
	if warehouseDriver != "" {
		cfg.Warehouse.Driver = warehouseDriver
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

func openWarehouse(ctx context.Context) (db.Store, error) {
	s, err := db.Open(ctx, cfg.Warehouse.Driver, cfg.Warehouse.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	return s, nil
}

func openSource(ctx context.Context) (db.Store, error) {
	s, err := db.Open(ctx, cfg.Source.Driver, cfg.Source.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source: %w", err)
	}
	return s, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var dimensionsCmd = &cobra.Command{
	Use:   "dimensions [name...]",
	Short: "List the warehouse dimensions",
	Long: `List every dimension table with its natural key, surrogate key
and attributes, in load order. Names restrict the listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dims := dw.Dimensions()
		if len(args) > 0 {
			dims = dims[:0:0]
			for _, name := range args {
				d, err := dw.Lookup(name)
				if err != nil {
					return err
				}
				dims = append(dims, d)
			}
		}

		for _, d := range dims {
			cmd.Printf("%-12s %-16s natural key: %s, surrogate key: %s\n",
				d.Name, d.Table, d.NaturalKey, d.SurrogateKey)

			attrs := make([]string, len(d.Attributes))
			for i, a := range d.Attributes {
				attrs[i] = a.Name + " " + a.Kind.String()
			}
			cmd.Printf("  %s\n", strings.Join(attrs, ", "))
		}
		return nil
	},
}
