//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-salesdw/internal/logging"
	"github.com/pgEdge/pgedge-salesdw/internal/metrics"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
)

// DimensionStats counts what happened to one dimension during a run.
type DimensionStats struct {
	// Source is the number of rows read from the source.
	Source int
	// Written is the number of rows the warehouse reported as changed.
	Written int64
	// Inferred is the number of placeholder members built.
	Inferred int
	NullKeys int
	// Duplicates is the number of source rows folded into another.
	Duplicates int
	// Fallback is set when members were inferred from the sales lines.
	Fallback bool
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID     string
	Window    source.Window
	StartedAt time.Time
	Duration  time.Duration

	// Extracted is the number of sales lines read.
	Extracted  int
	Dimensions map[string]DimensionStats

	FactsWritten int64
	FactsIgnored int64

	// Skipped is the number of lines whose measures could not be computed.
	Skipped int
	// Unresolved is the number of fact rows pointing at an unknown member.
	Unresolved int
	// Gaps counts unresolved natural keys per dimension.
	Gaps map[string]int
}

func newSummary(runID string, w source.Window) *Summary {
	return &Summary{
		RunID:      runID,
		Window:     w,
		StartedAt:  time.Now(),
		Dimensions: make(map[string]DimensionStats),
		Gaps:       make(map[string]int),
	}
}

// Upserted returns the dimension rows written across all dimensions.
func (s *Summary) Upserted() int64 {
	var n int64
	for _, d := range s.Dimensions {
		n += d.Written
	}
	return n
}

// Log writes the run summary. A non-nil err marks the run failed.
func (s *Summary) Log(err error) {
	var ev *zerolog.Event
	if err != nil {
		ev = logging.Error().Err(err).Str("status", "failed")
	} else {
		ev = logging.Info().Str("status", "success")
	}

	ev.Str("run_id", s.RunID).
		Str("window", s.Window.String()).
		Dur("duration", s.Duration).
		Int("processed", s.Extracted).
		Int64("upserted", s.Upserted()).
		Int64("facts_written", s.FactsWritten).
		Int64("facts_ignored", s.FactsIgnored).
		Int("skipped", s.Skipped).
		Int("unresolved", s.Unresolved).
		Msg("Run summary")

	names := make([]string, 0, len(s.Dimensions))
	for name := range s.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d := s.Dimensions[name]
		logging.Info().
			Str("dimension", name).
			Int("source", d.Source).
			Int64("written", d.Written).
			Int("inferred", d.Inferred).
			Int("null_keys", d.NullKeys).
			Int("duplicates", d.Duplicates).
			Bool("fallback", d.Fallback).
			Int("gaps", s.Gaps[name]).
			Msg("")
	}
}

func (s *Summary) record(job string) {
	metrics.RecordRows(job, "extracted", int64(s.Extracted))
	metrics.RecordRows(job, "upserted", s.Upserted())
	metrics.RecordRows(job, "facts_written", s.FactsWritten)
	metrics.RecordRows(job, "facts_ignored", s.FactsIgnored)
	metrics.RecordRows(job, "skipped", int64(s.Skipped))
	metrics.RecordRows(job, "unresolved", int64(s.Unresolved))
}
