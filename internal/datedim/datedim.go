//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse Loader
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package datedim builds calendar dimension rows.
package datedim

import (
	"fmt"
	"sort"
	"time"

	"github.com/pgEdge/pgedge-salesdw/internal/dw"
)

// Row is one calendar day.
type Row struct {
	DateKey   int64
	FullDate  time.Time
	Year      int
	Quarter   int
	Month     int
	MonthName string
	Day       int
	Weekday   int // ISO 8601, Monday = 1
	DayName   string
	IsWeekend bool
}

// Key returns the YYYYMMDD key of the calendar date of t. The time of day
// and location are ignored.
func Key(t time.Time) int64 {
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}

// FromDate derives the calendar attributes of t.
func FromDate(t time.Time) Row {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	return Row{
		DateKey:   Key(day),
		FullDate:  day,
		Year:      day.Year(),
		Quarter:   (int(day.Month())-1)/3 + 1,
		Month:     int(day.Month()),
		MonthName: day.Month().String(),
		Day:       day.Day(),
		Weekday:   weekday,
		DayName:   day.Weekday().String(),
		IsWeekend: weekday >= 6,
	}
}

// Derived returns one row per distinct calendar date in dates, ordered by
// date key.
func Derived(dates []time.Time) []Row {
	seen := make(map[int64]struct{}, len(dates))
	rows := make([]Row, 0, len(dates))
	for _, d := range dates {
		k := Key(d)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, FromDate(d))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DateKey < rows[j].DateKey })
	return rows
}

// Range returns one row per day from start to end inclusive.
func Range(start, end time.Time) ([]Row, error) {
	first := FromDate(start).FullDate
	last := FromDate(end).FullDate
	if last.Before(first) {
		return nil, fmt.Errorf("date range end %s is before start %s",
			last.Format(time.DateOnly), first.Format(time.DateOnly))
	}

	days := int(last.Sub(first).Hours()/24) + 1
	rows := make([]Row, 0, days)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		rows = append(rows, FromDate(d))
	}
	return rows, nil
}

// Record converts the row to a dim_date record.
func (r Row) Record() dw.Record {
	return dw.Record{
		"date_key":   r.DateKey,
		"full_date":  r.FullDate,
		"year":       int64(r.Year),
		"quarter":    int64(r.Quarter),
		"month":      int64(r.Month),
		"month_name": r.MonthName,
		"day":        int64(r.Day),
		"weekday":    int64(r.Weekday),
		"day_name":   r.DayName,
		"is_weekend": r.IsWeekend,
	}
}

// Records converts rows to dim_date records.
func Records(rows []Row) []dw.Record {
	out := make([]dw.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out
}
