//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package logging

// ProgressReporter tracks and reports progress of a long table write.
type ProgressReporter struct {
	tableName        string
	action           string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter. action names the
// work in log messages, e.g. "Loading".
func NewProgressReporter(tableName, action string, totalRows, interval int64) *ProgressReporter {
	if interval <= 0 {
		interval = 1
	}
	return &ProgressReporter{
		tableName:        tableName,
		action:           action,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rows int64) {
	oldRow := p.currentRow
	p.currentRow += rows

	// Check if we crossed a progress interval
	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := 100.0
		if p.totalRows > 0 {
			pct = float64(p.currentRow) / float64(p.totalRows) * 100
		}
		Info().
			Str("table", p.tableName).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg(p.action)
	}
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	Debug().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Msg("Table complete")
}
