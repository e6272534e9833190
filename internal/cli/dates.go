package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesdw/internal/pipeline"
)

var (
	datesStart string
	datesEnd   string
)

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "Populate the date dimension for a range",
	Long: `Insert one dim_date row per day from --start to --end inclusive.
Dates already present are left untouched, so the command can be rerun
to extend the range.

Example:
  pgedge-salesdw dates --start 2000-01-01 --end 2030-12-31`,
	RunE: runDates,
}

func init() {
	datesCmd.Flags().StringVar(&datesStart, "start", "",
		"first date (YYYY-MM-DD, default: 2000-01-01)")
	datesCmd.Flags().StringVar(&datesEnd, "end", "",
		"last date (YYYY-MM-DD, default: 2030-12-31)")
}

func runDates(cmd *cobra.Command, args []string) error {
	if datesStart != "" {
		cfg.Dates.Start = datesStart
	}
	if datesEnd != "" {
		cfg.Dates.End = datesEnd
	}

	if err := cfg.ValidateDates(); err != nil {
		return err
	}
	start, end, err := cfg.Dates.Range()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openWarehouse(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = pipeline.LoadDateRange(ctx, store, start, end, cfg.Run.BatchSize)
	return err
}
