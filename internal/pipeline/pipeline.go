//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline runs one extract, transform and load pass from the
// operational store into the warehouse.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-salesdw/internal/datedim"
	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/dw"
	"github.com/pgEdge/pgedge-salesdw/internal/facts"
	"github.com/pgEdge/pgedge-salesdw/internal/load"
	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/metrics"
	"github.com/pgEdge/pgedge-salesdw/internal/resolve"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
	"github.com/pgEdge/pgedge-salesdw/internal/transform"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

// maxLoggedSkips bounds the per-line warnings written for skipped lines.
const maxLoggedSkips = 10

// Metadata keys written after a successful run.
const (
	MetaLastRunID  = "last_run_id"
	MetaLastRunAt  = "last_run_at"
	MetaLastWindow = "last_window"
	MetaLastFacts  = "last_fact_rows"
)

// Config holds the settings of a run.
type Config struct {
	Window       source.Window
	BatchSize    int
	DedupPolicy  transform.Policy
	FactConflict facts.ConflictPolicy

	// Job labels the metrics of the run.
	Job string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		BatchSize:    load.DefaultBatchSize,
		DedupPolicy:  transform.FirstWins,
		FactConflict: facts.Ignore,
		Job:          "pgedge-salesdw",
	}
}

// Pipeline moves sales data from a source store into a warehouse store.
type Pipeline struct {
	cfg         Config
	warehouse   db.Store
	reader      *source.Reader
	transformer *transform.Transformer
	upserter    *load.Upserter
}

// New creates a pipeline reading from src and writing to wh.
func New(src, wh db.Store, cfg Config) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = load.DefaultBatchSize
	}
	if cfg.Job == "" {
		cfg.Job = DefaultConfig().Job
	}

	loadCfg := load.DefaultConfig()
	loadCfg.BatchSize = cfg.BatchSize

	return &Pipeline{
		cfg:         cfg,
		warehouse:   wh,
		reader:      source.NewReader(src),
		transformer: transform.New(cfg.DedupPolicy),
		upserter:    load.NewUpserter(wh, loadCfg),
	}
}

// Run executes every phase in order. The summary is returned and logged
// even when a phase fails.
func (p *Pipeline) Run(ctx context.Context) (sum *Summary, err error) {
	sum = newSummary(uuid.NewString(), p.cfg.Window)
	defer func() {
		sum.Duration = time.Since(sum.StartedAt)
		sum.Log(err)
		sum.record(p.cfg.Job)
	}()

	logging.Info().
		Str("run_id", sum.RunID).
		Str("window", p.cfg.Window.String()).
		Str("dedup_policy", string(p.transformer.Policy())).
		Str("fact_conflict", string(p.cfg.FactConflict)).
		Msg("Starting warehouse load")

	if err = p.step("verify", func() error {
		return warehouse.VerifySchema(ctx, p.warehouse)
	}); err != nil {
		return sum, err
	}

	var lines []dw.Record
	if err = p.step("extract", func() error {
		var e error
		lines, e = p.reader.SalesLines(ctx, p.cfg.Window)
		sum.Extracted = len(lines)
		return e
	}); err != nil {
		return sum, err
	}

	for _, d := range dw.SourcedDimensions() {
		if err = p.step("dimension_"+d.Name, func() error {
			return p.loadDimension(ctx, d, lines, sum)
		}); err != nil {
			return sum, err
		}
	}

	if err = p.step("dimension_date", func() error {
		rows := datedim.Derived(facts.Dates(lines))
		res, e := p.upserter.Upsert(ctx, dw.Date, datedim.Records(rows), load.ModeInsertOnly)
		sum.Dimensions[dw.Date.Name] = DimensionStats{Source: len(rows), Written: res.Affected}
		return e
	}); err != nil {
		return sum, err
	}

	if err = p.step("dimension_order", func() error {
		tr := p.transformer.Transform(dw.Order, lines)
		res, e := p.upserter.Upsert(ctx, dw.Order, tr.Records, load.ModeReplace)
		sum.Dimensions[dw.Order.Name] = DimensionStats{
			Source:     len(tr.Records),
			Written:    res.Affected,
			NullKeys:   tr.NullKeys,
			Duplicates: tr.Duplicates,
		}
		return e
	}); err != nil {
		return sum, err
	}

	resolver := resolve.NewResolver()
	if err = p.step("resolve", func() error {
		return resolver.LoadAll(ctx, p.warehouse,
			dw.Product, dw.Customer, dw.Salesperson, dw.Territory, dw.Order)
	}); err != nil {
		return sum, err
	}

	if err = p.step("facts", func() error {
		return p.loadFacts(ctx, resolver, lines, sum)
	}); err != nil {
		return sum, err
	}

	err = p.step("metadata", func() error {
		return db.SaveMetadata(ctx, p.warehouse, map[string]string{
			MetaLastRunID:  sum.RunID,
			MetaLastRunAt:  sum.StartedAt.UTC().Format(time.RFC3339),
			MetaLastWindow: p.cfg.Window.String(),
			MetaLastFacts:  fmt.Sprintf("%d", sum.FactsWritten),
		})
	})
	return sum, err
}

// loadDimension reads, transforms and upserts one sourced dimension. When
// the source query fails, placeholder members are inferred from the
// natural keys in the sales lines instead.
func (p *Pipeline) loadDimension(ctx context.Context, d dw.Dimension, lines []dw.Record, sum *Summary) error {
	rows, err := p.reader.Dimension(ctx, d)
	if err != nil {
		var sqe *dw.SourceQueryError
		if !errors.As(err, &sqe) {
			return err
		}
		logging.Warn().
			Err(err).
			Str("dimension", d.Name).
			Msg("Source query failed, inferring members from sales lines")
		return p.inferDimension(ctx, d, lines, sum)
	}

	if len(rows) == 0 && len(lines) > 0 {
		logging.Warn().
			Str("dimension", d.Name).
			Msg("Source returned no rows, inferring members from sales lines")
		return p.inferDimension(ctx, d, lines, sum)
	}

	tr := p.transformer.Transform(d, rows)
	if tr.NullKeys > 0 || tr.Duplicates > 0 {
		logging.Warn().
			Str("dimension", d.Name).
			Int("null_keys", tr.NullKeys).
			Int("duplicates", tr.Duplicates).
			Msg("Source rows dropped or merged")
	}

	res, err := p.upserter.Upsert(ctx, d, tr.Records, load.ModeReplace)
	sum.Dimensions[d.Name] = DimensionStats{
		Source:     len(rows),
		Written:    res.Affected,
		NullKeys:   tr.NullKeys,
		Duplicates: tr.Duplicates,
	}
	return err
}

func (p *Pipeline) inferDimension(ctx context.Context, d dw.Dimension, lines []dw.Record, sum *Summary) error {
	recs := p.transformer.Infer(d, transform.NaturalKeys(lines, d.NaturalKey))
	res, err := p.upserter.Upsert(ctx, d, recs, load.ModeInsertOnly)
	sum.Dimensions[d.Name] = DimensionStats{
		Inferred: len(recs),
		Written:  res.Affected,
		Fallback: true,
	}
	return err
}

func (p *Pipeline) loadFacts(ctx context.Context, r *resolve.Resolver, lines []dw.Record, sum *Summary) error {
	res := facts.NewAssembler(r).Assemble(lines)
	sum.Skipped = len(res.Skipped)
	sum.Unresolved = res.Unresolved
	sum.Gaps = r.Gaps()

	for i, e := range res.Skipped {
		if i == maxLoggedSkips {
			logging.Warn().
				Int("remaining", len(res.Skipped)-i).
				Msg("Further skipped lines not logged")
			break
		}
		logging.Warn().Err(e).Int64("order_line_id", e.OrderLineID).Msg("Skipping sales line")
	}
	for _, g := range r.GapSamples() {
		logging.Debug().
			Str("dimension", g.Dimension).
			Int64("natural_key", g.NaturalKey).
			Int64("order_line_id", g.OrderLineID).
			Msg("Key not found, using unknown member")
	}

	loader := facts.NewLoader(p.warehouse, p.cfg.FactConflict, p.cfg.BatchSize, sum.RunID)
	lr, err := loader.Load(ctx, res.Rows)
	sum.FactsWritten = lr.Written
	sum.FactsIgnored = lr.Ignored
	return err
}

// step runs fn as a named phase, timing it and recording the outcome.
func (p *Pipeline) step(name string, fn func() error) error {
	start := time.Now()
	logging.Debug().Str("step", name).Msg("Step started")

	err := fn()
	elapsed := time.Since(start)
	metrics.RecordStep(p.cfg.Job, name, err, elapsed)

	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	logging.Info().
		Str("step", name).
		Dur("elapsed", elapsed).
		Msg("Step complete")
	return nil
}
