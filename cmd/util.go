// Copyright 2021-2026
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

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/penny-vault/pv-eventstudy/dataframe"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
	"github.com/penny-vault/pv-eventstudy/observability/opentelemetry"
	"github.com/penny-vault/pv-eventstudy/report"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const sanityRows = 3

// configFromViper builds the study configuration from the window.*, instrument.*, panel.* and returns.* settings
func configFromViper() (eventstudy.Config, error) {
	cfg := eventstudy.DefaultConfig()

	cfg.Pre = viper.GetInt("window.pre")
	cfg.Post = viper.GetInt("window.post")
	cfg.CodeWidth = viper.GetInt("instrument.code_width")
	cfg.ProgressEvery = viper.GetInt("panel.progress_every")
	cfg.Workers = viper.GetInt("panel.workers")

	windows, err := carWindows()
	if err != nil {
		return cfg, err
	}
	cfg.CARWindows = windows

	src, err := eventstudy.ParseReturnSource(viper.GetString("returns.source"))
	if err != nil {
		return cfg, err
	}
	cfg.ReturnSource = src

	return cfg, cfg.Validate()
}

// carWindows reads window.car either as a list (config file, flag) or as a comma separated string (environment)
func carWindows() ([]int, error) {
	if windows := viper.GetIntSlice("window.car"); len(windows) > 0 {
		return windows, nil
	}

	raw := strings.Trim(viper.GetString("window.car"), "[] ")
	if raw == "" {
		return eventstudy.DefaultConfig().CARWindows, nil
	}

	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	windows := make([]int, 0, len(parts))
	for _, part := range parts {
		w, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: window.car value %q", eventstudy.ErrInvalidConfig, part)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func outputOptions() report.Options {
	return report.Options{
		BOM:      viper.GetBool("output.bom"),
		Compress: viper.GetBool("output.compress"),
	}
}

// loadInputs reads the events and prices tables; both must exist
func loadInputs(ctx context.Context, cfg eventstudy.Config) ([]*data.Event, *data.PriceTable, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "cmd.loadInputs")
	defer span.End()

	eventsPath := viper.GetString("events.path")
	pricesPath := viper.GetString("prices.path")

	events, err := data.LoadEvents(eventsPath, cfg.CodeWidth)
	if err != nil {
		return nil, nil, err
	}

	prices, err := data.LoadPrices(pricesPath, cfg.CodeWidth, viper.GetString("returns.column"))
	if err != nil {
		return nil, nil, err
	}

	span.SetAttributes(attribute.Int("events", len(events)), attribute.Int("instruments", len(prices.Series)))
	log.Info().Int("NumEvents", len(events)).Int("NumPriceRows", prices.Series.Rows()).Int("NumCodes", len(prices.Series)).Bool("HasReturns", prices.HasReturns()).Msg("loaded inputs")
	return events, prices, nil
}

// panelHead renders the first n rows of the panel
func panelHead(panel *eventstudy.Panel, n int) string {
	n = min(n, panel.Len())
	head := &dataframe.DataFrame[time.Time]{
		Index:    make([]time.Time, n),
		ColNames: []string{eventstudy.ColTau, string(data.MetricClose), eventstudy.ColRetClose, eventstudy.ColCloseNorm},
		Vals:     [][]float64{make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)},
	}

	for idx, row := range panel.Rows[:n] {
		head.Index[idx] = row.Date
		head.Vals[0][idx] = float64(row.Tau)
		head.Vals[1][idx] = row.Close
		head.Vals[2][idx] = row.RetClose
		head.Vals[3][idx] = row.CloseNorm
	}

	return head.Table()
}

// summaryHead renders the CARs of the first n events indexed by event id
func summaryHead(summary *eventstudy.Summary, n int) string {
	n = min(n, len(summary.Events))
	head := &dataframe.DataFrame[string]{
		Index:    make([]string, n),
		ColNames: make([]string, len(summary.Windows)),
		Vals:     make([][]float64, len(summary.Windows)),
	}

	for colIdx, w := range summary.Windows {
		head.ColNames[colIdx] = eventstudy.CARColumn(w)
		head.Vals[colIdx] = make([]float64, n)
	}

	for idx, es := range summary.Events[:n] {
		head.Index[idx] = es.Event.ReceiptNo + " " + es.Event.StockCode
		for colIdx := range summary.Windows {
			head.Vals[colIdx][idx] = es.CAR[colIdx]
		}
	}

	return head.Table()
}

// caarHead renders the first n offsets of the AAR/CAAR series
func caarHead(aar *dataframe.DataFrame[int], n int) string {
	n = min(n, aar.Len())
	head, err := aar.Slice(0, n)
	if err != nil {
		return err.Error()
	}
	return head.Table()
}
