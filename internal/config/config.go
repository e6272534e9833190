//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-salesdw.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/facts"
	"github.com/pgEdge/pgedge-salesdw/internal/transform"
)

// DateLayout is the format of every date in the configuration.
const DateLayout = time.DateOnly

// Config holds all configuration for pgedge-salesdw.
type Config struct {
	// Source is the operational database the sales data is read from.
	Source StoreConfig `mapstructure:"source"`

	// Warehouse is the analytical database the star schema lives in.
	Warehouse StoreConfig `mapstructure:"warehouse"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Init holds configuration for the init subcommand.
	Init InitConfig `mapstructure:"init"`

	// Run holds configuration for the run subcommand.
	Run RunConfig `mapstructure:"run"`

	// Dates holds configuration for the dates subcommand.
	Dates DatesConfig `mapstructure:"dates"`

	// Metrics holds the optional Pushgateway settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StoreConfig identifies one database.
type StoreConfig struct {
	// Driver is postgres, sqlite or sqlserver (source only).
	Driver string `mapstructure:"driver"`

	// Connection is the driver specific connection string or file path.
	Connection string `mapstructure:"connection"`
}

// InitConfig holds configuration for warehouse initialization.
type InitConfig struct {
	// DropExisting drops existing schema before initialization.
	DropExisting bool `mapstructure:"drop_existing"`
}

// RunConfig holds configuration for a pipeline run.
type RunConfig struct {
	// From is the first order date processed (inclusive, YYYY-MM-DD).
	// Empty means unbounded.
	From string `mapstructure:"from"`

	// To is the order date processing stops at (exclusive, YYYY-MM-DD).
	// Empty means unbounded.
	To string `mapstructure:"to"`

	// BatchSize is the number of rows written per statement.
	BatchSize int `mapstructure:"batch_size"`

	// DedupPolicy picks the surviving source row for a repeated natural
	// key: first-wins, last-wins or coalesce.
	DedupPolicy string `mapstructure:"dedup_policy"`

	// FactConflict decides what happens to an order line already loaded:
	// ignore or replace.
	FactConflict string `mapstructure:"fact_conflict"`
}

// DatesConfig holds the range populated by the dates subcommand.
type DatesConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// MetricsConfig holds the Pushgateway settings. An empty URL disables
// metrics.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Source:    StoreConfig{Driver: "postgres"},
		Warehouse: StoreConfig{Driver: "postgres"},
		LogLevel:  "info",
		Run: RunConfig{
			BatchSize:    5000,
			DedupPolicy:  string(transform.FirstWins),
			FactConflict: string(facts.Ignore),
		},
		Dates: DatesConfig{
			Start: "2000-01-01",
			End:   "2030-12-31",
		},
		Metrics: MetricsConfig{
			Job: "pgedge-salesdw",
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-salesdw.yaml
// 3. ~/.config/pgedge-salesdw/pgedge-salesdw.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-salesdw")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-salesdw"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the warehouse is configured.
func (c *Config) Validate() error {
	if c.Warehouse.Connection == "" {
		return fmt.Errorf("warehouse connection is required")
	}
	d, err := db.DialectFor(c.Warehouse.Driver)
	if err != nil {
		return fmt.Errorf("warehouse: %w", err)
	}
	if !d.Upsert {
		return fmt.Errorf("warehouse driver %s is not supported", d.Name)
	}
	return nil
}

// ValidateRun checks configuration required for the run command.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Source.Connection == "" {
		return fmt.Errorf("source connection is required")
	}
	if _, err := db.DialectFor(c.Source.Driver); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if c.Run.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	if _, err := transform.ParsePolicy(c.Run.DedupPolicy); err != nil {
		return err
	}
	if _, err := facts.ParseConflictPolicy(c.Run.FactConflict); err != nil {
		return err
	}
	_, _, err := c.Run.Window()
	return err
}

// ValidateDates checks configuration required for the dates command.
func (c *Config) ValidateDates() error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, _, err := c.Dates.Range()
	return err
}

// Window parses the processing window. A zero time means unbounded.
func (r RunConfig) Window() (from, to time.Time, err error) {
	if from, err = parseDate("run.from", r.From); err != nil {
		return
	}
	if to, err = parseDate("run.to", r.To); err != nil {
		return
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		err = fmt.Errorf("run.to (%s) must be after run.from (%s)", r.To, r.From)
	}
	return
}

// Range parses the date dimension range. Both ends are required.
func (d DatesConfig) Range() (start, end time.Time, err error) {
	if d.Start == "" || d.End == "" {
		err = fmt.Errorf("dates.start and dates.end are required")
		return
	}
	if start, err = parseDate("dates.start", d.Start); err != nil {
		return
	}
	if end, err = parseDate("dates.end", d.End); err != nil {
		return
	}
	if end.Before(start) {
		err = fmt.Errorf("dates.end (%s) must not be before dates.start (%s)", d.End, d.Start)
	}
	return
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", field, s)
	}
	return t, nil
}
