// Copyright 2026
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eventstudy

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/penny-vault/pv-eventstudy/dataframe"
	"github.com/penny-vault/pv-eventstudy/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Row is one trading day of one event window
type Row struct {
	Event      *data.Event
	AnchorDate time.Time
	Date       time.Time
	Tau        int

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	// ExternalReturn is the daily return supplied by the price feed; NaN when the feed has none
	ExternalReturn float64

	CloseNorm float64
	RetClose  float64
}

// Return selects the per-row return for src. src must be ReturnExternal or ReturnWindow
func (row *Row) Return(src ReturnSource) float64 {
	if src == ReturnExternal {
		return row.ExternalReturn
	}
	return row.RetClose
}

// PanelStats counts how each event was handled during panel assembly
type PanelStats struct {
	Events              int
	Windowed            int
	UnknownInstrument   int
	NoTradingDay        int
	InsufficientHistory int
}

// Skipped returns the number of events that produced no window
func (stats PanelStats) Skipped() int {
	return stats.UnknownInstrument + stats.NoTradingDay + stats.InsufficientHistory
}

// Panel is the row-wise concatenation of every event window, sorted by (event id, stock code, date)
type Panel struct {
	Rows []*Row

	// ReturnColumn names the external return carried in ExternalReturn; empty when the price feed had none
	ReturnColumn string

	// WindowReturns is true when RetClose holds the within-window return
	WindowReturns bool

	Stats PanelStats
}

// Len returns the number of rows in the panel
func (panel *Panel) Len() int {
	return len(panel.Rows)
}

type skipReason int

const (
	windowed skipReason = iota
	unknownInstrument
	noTradingDay
	insufficientHistory
)

func (reason skipReason) String() string {
	switch reason {
	case unknownInstrument:
		return "unknown instrument"
	case noTradingDay:
		return "no trading day on or after filing date"
	case insufficientHistory:
		return "insufficient history"
	default:
		return "windowed"
	}
}

// BuildPanel aligns every event to its anchor trading day, cuts a window of cfg.Pre + cfg.Post + 1 trading days
// around it and stitches the windows into one panel. Events whose stock code has no price series, whose filing date
// is after the last trading day, or whose window would run past either end of the series are skipped silently and
// only show up in Panel.Stats. Overlapping windows for the same stock code are kept as independent windows. An empty
// panel is not an error.
func BuildPanel(ctx context.Context, events []*data.Event, prices *data.PriceTable, cfg Config) (*Panel, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "eventstudy.BuildPanel")
	defer span.End()

	if err := cfg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid configuration")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("events", len(events)),
		attribute.Int("pre", cfg.Pre),
		attribute.Int("post", cfg.Post),
		attribute.Int("workers", cfg.Workers),
	)

	windows := make([][]*Row, len(events))
	reasons := make([]skipReason, len(events))

	var err error
	if cfg.Workers > 1 {
		err = windowEventsParallel(ctx, events, prices, cfg, windows, reasons)
	} else {
		err = windowEvents(events, prices, cfg, windows, reasons)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "window construction failed")
		return nil, err
	}

	panel := &Panel{
		ReturnColumn:  prices.ReturnColumn,
		WindowReturns: true,
		Stats:         PanelStats{Events: len(events)},
	}

	numRows := 0
	for idx, reason := range reasons {
		switch reason {
		case windowed:
			panel.Stats.Windowed++
			numRows += len(windows[idx])
		case unknownInstrument:
			panel.Stats.UnknownInstrument++
		case noTradingDay:
			panel.Stats.NoTradingDay++
		case insufficientHistory:
			panel.Stats.InsufficientHistory++
		}
	}

	panel.Rows = make([]*Row, 0, numRows)
	for _, rows := range windows {
		panel.Rows = append(panel.Rows, rows...)
	}

	sortPanel(panel.Rows)
	chainReturns(panel.Rows)

	log.Info().
		Int("Events", panel.Stats.Events).
		Int("Windowed", panel.Stats.Windowed).
		Int("UnknownInstrument", panel.Stats.UnknownInstrument).
		Int("NoTradingDay", panel.Stats.NoTradingDay).
		Int("InsufficientHistory", panel.Stats.InsufficientHistory).
		Int("NumRows", panel.Len()).
		Msg("built event panel")

	span.SetAttributes(attribute.Int("windowed", panel.Stats.Windowed), attribute.Int("rows", panel.Len()))
	return panel, nil
}

func windowEvents(events []*data.Event, prices *data.PriceTable, cfg Config, windows [][]*Row, reasons []skipReason) error {
	for idx, ev := range events {
		rows, reason, err := windowEvent(ev, prices, cfg)
		if err != nil {
			return err
		}
		windows[idx] = rows
		reasons[idx] = reason
		logProgress(idx+1, len(events), cfg.ProgressEvery)
	}
	return nil
}

// windowEventsParallel windows events concurrently. Each event writes only its own slot in windows and reasons so
// no locking is required; canonical order is restored by sortPanel
func windowEventsParallel(ctx context.Context, events []*data.Event, prices *data.PriceTable, cfg Config, windows [][]*Row, reasons []skipReason) error {
	var processed atomic.Int64

	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(cfg.Workers)

	for idx, ev := range events {
		idx, ev := idx, ev
		grp.Go(func() error {
			rows, reason, err := windowEvent(ev, prices, cfg)
			if err != nil {
				return err
			}
			windows[idx] = rows
			reasons[idx] = reason
			logProgress(int(processed.Add(1)), len(events), cfg.ProgressEvery)
			return nil
		})
	}

	return grp.Wait()
}

func logProgress(processed, total, every int) {
	if every > 0 && processed%every == 0 {
		log.Info().Int("Processed", processed).Int("Total", total).Msg("panel progress")
	}
}

func windowEvent(ev *data.Event, prices *data.PriceTable, cfg Config) ([]*Row, skipReason, error) {
	series, ok := prices.Lookup(ev.StockCode)
	if !ok {
		log.Debug().Str("ReceiptNo", ev.ReceiptNo).Str("StockCode", ev.StockCode).Stringer("Reason", unknownInstrument).Msg("skipping event")
		return nil, unknownInstrument, nil
	}

	anchorIdx, ok := NextTradingDay(series, ev.EventDate)
	if !ok {
		log.Debug().Str("ReceiptNo", ev.ReceiptNo).Str("StockCode", ev.StockCode).Time("EventDate", ev.EventDate).Stringer("Reason", noTradingDay).Msg("skipping event")
		return nil, noTradingDay, nil
	}

	win, err := BuildWindow(series, anchorIdx, cfg.Pre, cfg.Post)
	if err != nil {
		if errors.Is(err, ErrInsufficientHistory) {
			log.Debug().Str("ReceiptNo", ev.ReceiptNo).Str("StockCode", ev.StockCode).Int("AnchorIdx", anchorIdx).Int("SeriesLen", series.Len()).Stringer("Reason", insufficientHistory).Msg("skipping event")
			return nil, insufficientHistory, nil
		}
		return nil, windowed, err
	}

	return windowRows(ev, win, prices.ReturnColumn), windowed, nil
}

// windowRows attaches the event metadata and anchor date to every row of the window
func windowRows(ev *data.Event, win *Window, returnColumn string) []*Row {
	frame := win.Frame
	open := frame.Col(string(data.MetricOpen))
	high := frame.Col(string(data.MetricHigh))
	low := frame.Col(string(data.MetricLow))
	closePrice := frame.Col(string(data.MetricClose))
	volume := frame.Col(string(data.MetricVolume))
	closeNorm := frame.Col(ColCloseNorm)
	retClose := frame.Col(ColRetClose)

	var external []float64
	if returnColumn != "" {
		external = frame.Col(returnColumn)
	}

	rows := make([]*Row, frame.Len())
	for idx, dt := range frame.Index {
		row := &Row{
			Event:          ev,
			AnchorDate:     win.Anchor,
			Date:           dt,
			Tau:            win.Tau[idx],
			Open:           valueAt(open, idx),
			High:           valueAt(high, idx),
			Low:            valueAt(low, idx),
			Close:          closePrice[idx],
			Volume:         valueAt(volume, idx),
			ExternalReturn: valueAt(external, idx),
			CloseNorm:      closeNorm[idx],
			RetClose:       retClose[idx],
		}
		rows[idx] = row
	}

	return rows
}

func valueAt(col []float64, idx int) float64 {
	if col == nil {
		return math.NaN()
	}
	return col[idx]
}

// sortPanel orders rows by (event id, stock code, date)
func sortPanel(rows []*Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Event.ReceiptNo != b.Event.ReceiptNo {
			return a.Event.ReceiptNo < b.Event.ReceiptNo
		}
		if a.Event.StockCode != b.Event.StockCode {
			return a.Event.StockCode < b.Event.StockCode
		}
		return a.Date.Before(b.Date)
	})
}

// chainReturns recomputes ret_close over each contiguous (event id, stock code) group of a sorted panel so that the
// return chain follows panel order, starting with NaN on the first row of every group
func chainReturns(rows []*Row) {
	for begin := 0; begin < len(rows); {
		end := begin + 1
		for end < len(rows) && sameGroup(rows[begin], rows[end]) {
			end++
		}

		group := &dataframe.DataFrame[time.Time]{
			Index:    make([]time.Time, end-begin),
			ColNames: []string{string(data.MetricClose)},
			Vals:     [][]float64{make([]float64, end-begin)},
		}
		for idx, row := range rows[begin:end] {
			group.Index[idx] = row.Date
			group.Vals[0][idx] = row.Close
		}

		ret := group.PctChange().Vals[0]
		for idx, row := range rows[begin:end] {
			row.RetClose = ret[idx]
		}

		begin = end
	}
}

func sameGroup(a, b *Row) bool {
	return a.Event.ReceiptNo == b.Event.ReceiptNo && a.Event.StockCode == b.Event.StockCode
}
