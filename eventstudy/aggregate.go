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
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/penny-vault/pv-eventstudy/dataframe"
	"github.com/penny-vault/pv-eventstudy/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	ColAAR  = "AAR"
	ColN    = "N"
	ColCAAR = "CAAR"
)

// EventSummary holds the cumulative returns of one event
type EventSummary struct {
	Event      *data.Event
	AnchorDate time.Time

	// CAR[i] is the cumulative return over [-Windows[i], +Windows[i]] of the enclosing Summary
	CAR []float64

	// CloseNormTau0 is close_norm on the anchor day; 1 for every complete window, NaN if the event has no tau=0 row
	CloseNormTau0 float64
}

// Summary is the per-event table of cumulative abnormal returns
type Summary struct {
	Windows []int
	Events  []*EventSummary
}

// Result bundles everything the aggregator produces for one panel
type Result struct {
	// Source records which return fed CAR and AAR
	Source ReturnSource

	Summary *Summary

	// AAR is indexed by tau in ascending order with columns AAR, N and CAAR
	AAR *dataframe.DataFrame[int]
}

// SelectReturnSource resolves the requested source against the returns actually present in the panel. ReturnAuto
// prefers the externally supplied return and falls back to ret_close. Requesting a source the panel does not carry,
// or a panel that carries neither, results in ErrNoReturnColumn.
func SelectReturnSource(panel *Panel, requested ReturnSource) (ReturnSource, error) {
	hasExternal := panel.ReturnColumn != ""

	switch requested {
	case ReturnAuto, "":
		if hasExternal {
			return ReturnExternal, nil
		}
		if panel.WindowReturns {
			return ReturnWindow, nil
		}
		return "", fmt.Errorf("%w: panel has neither an external return nor %s", ErrNoReturnColumn, ColRetClose)
	case ReturnExternal:
		if !hasExternal {
			return "", fmt.Errorf("%w: external return requested but the panel does not carry one", ErrNoReturnColumn)
		}
		return ReturnExternal, nil
	case ReturnWindow:
		if !panel.WindowReturns {
			return "", fmt.Errorf("%w: %s requested but the panel does not carry it", ErrNoReturnColumn, ColRetClose)
		}
		return ReturnWindow, nil
	default:
		return "", fmt.Errorf("%w: unknown return source %q", ErrInvalidConfig, requested)
	}
}

// Aggregate selects the return source and computes the event summary and the AAR/CAAR series
func Aggregate(ctx context.Context, panel *Panel, cfg Config) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "eventstudy.Aggregate")
	defer span.End()

	if err := cfg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid configuration")
		return nil, err
	}

	src, err := SelectReturnSource(panel, cfg.ReturnSource)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no return column")
		return nil, err
	}

	log.Info().Str("Requested", string(cfg.ReturnSource)).Str("ReturnSource", string(src)).Str("ReturnColumn", panel.ReturnColumn).Msg("selected return source")
	span.SetAttributes(attribute.String("return_source", string(src)), attribute.Int("rows", panel.Len()))

	res := &Result{
		Source:  src,
		Summary: Summarize(ctx, panel, src, cfg.CARWindows),
		AAR:     AverageReturns(ctx, panel, src),
	}

	log.Info().Int("NumEvents", len(res.Summary.Events)).Int("NumOffsets", res.AAR.Len()).Msg("aggregated event panel")
	return res, nil
}

// Summarize groups the panel by event id and folds each group into an EventSummary. CAR over [-w, +w] is the sum of
// the selected return for every row with -w <= tau <= w; undefined returns count as zero so the anchor day is always
// part of the sum.
func Summarize(ctx context.Context, panel *Panel, src ReturnSource, windows []int) *Summary {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "eventstudy.Summarize")
	defer span.End()

	ids, groups := groupBy(panel.Rows, func(row *Row) string {
		return row.Event.ReceiptNo
	})

	summary := &Summary{
		Windows: append([]int(nil), windows...),
		Events:  make([]*EventSummary, 0, len(ids)),
	}

	for _, id := range ids {
		summary.Events = append(summary.Events, summarizeEvent(groups[id], src, windows))
	}

	return summary
}

func summarizeEvent(rows []*Row, src ReturnSource, windows []int) *EventSummary {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Tau < rows[j].Tau
	})

	first := rows[0]
	es := &EventSummary{
		Event:         first.Event,
		AnchorDate:    first.AnchorDate,
		CAR:           make([]float64, len(windows)),
		CloseNormTau0: math.NaN(),
	}

	for _, row := range rows {
		if row.Tau == 0 {
			es.CloseNormTau0 = row.CloseNorm
			break
		}
	}

	for idx, w := range windows {
		rets := make([]float64, 0, 2*w+1)
		for _, row := range rows {
			if row.Tau >= -w && row.Tau <= w {
				rets = append(rets, fillNaN(row.Return(src)))
			}
		}
		es.CAR[idx] = floats.Sum(rets)
	}

	return es
}

// AverageReturns groups the panel by tau across all events. AAR is the mean of the selected return (undefined
// returns count as zero), N the number of rows at that offset and CAAR the running sum of AAR starting from the most
// negative tau.
func AverageReturns(ctx context.Context, panel *Panel, src ReturnSource) *dataframe.DataFrame[int] {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "eventstudy.AverageReturns")
	defer span.End()

	taus, groups := groupBy(panel.Rows, func(row *Row) int {
		return row.Tau
	})
	sort.Ints(taus)

	aar := &dataframe.DataFrame[int]{
		Index:    make([]int, 0, len(taus)),
		ColNames: []string{ColAAR, ColN},
		Vals:     [][]float64{make([]float64, 0, len(taus)), make([]float64, 0, len(taus))},
	}

	for _, tau := range taus {
		rets := make([]float64, len(groups[tau]))
		for idx, row := range groups[tau] {
			rets[idx] = fillNaN(row.Return(src))
		}
		aar.InsertRow(tau, stat.Mean(rets, nil), float64(len(rets)))
	}

	caar := &dataframe.DataFrame[int]{
		Index:    aar.Index,
		ColNames: []string{ColCAAR},
		Vals:     [][]float64{aar.Col(ColAAR)},
	}

	return aar.Insert(ColCAAR, caar.CumSum().Vals[0])
}

func fillNaN(val float64) float64 {
	if math.IsNaN(val) {
		return 0
	}
	return val
}
