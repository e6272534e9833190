package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
	"github.com/pgEdge/pgedge-salesdw/pkg/version"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the warehouse schema",
	Long: `Create the dimension and fact tables in the warehouse and seed the
unknown member (key -1) of every dimension. Existing tables are kept
unless --drop-existing is given.

Example:
  pgedge-salesdw init --warehouse "postgres://..."
  pgedge-salesdw init --warehouse-driver sqlite --warehouse ./salesdw.db`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing schema before initialization")
}

func runInit(cmd *cobra.Command, args []string) error {
	if initDropExisting {
		cfg.Init.DropExisting = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openWarehouse(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Init.DropExisting {
		logging.Warn().Msg("Dropping existing warehouse schema")
	}

	logging.Info().
		Str("driver", store.Dialect().Name).
		Msg("Creating warehouse schema")

	if err := warehouse.CreateSchema(ctx, store, cfg.Init.DropExisting); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.SaveMetadata(ctx, store, map[string]string{
		"initialized_by": version.Short(),
	}); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Info().
		Strs("tables", warehouse.Tables()).
		Msg("Warehouse initialization complete")

	return nil
}
