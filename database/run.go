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

package database

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
	"github.com/penny-vault/pv-eventstudy/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS event_study_run (
		run_id uuid PRIMARY KEY,
		created_at timestamptz NOT NULL,
		version text NOT NULL,
		pre int NOT NULL,
		post int NOT NULL,
		return_source text NOT NULL,
		events int NOT NULL,
		windowed int NOT NULL,
		unknown_instrument int NOT NULL,
		no_trading_day int NOT NULL,
		insufficient_history int NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS event_car (
		run_id uuid NOT NULL REFERENCES event_study_run(run_id) ON DELETE CASCADE,
		rcept_no text NOT NULL,
		stock_code text NOT NULL,
		event_trade_date date,
		half_width int NOT NULL,
		car double precision,
		PRIMARY KEY (run_id, rcept_no, half_width)
	)`,
	`CREATE TABLE IF NOT EXISTS event_caar (
		run_id uuid NOT NULL REFERENCES event_study_run(run_id) ON DELETE CASCADE,
		tau int NOT NULL,
		aar double precision,
		n int NOT NULL,
		caar double precision,
		PRIMARY KEY (run_id, tau)
	)`,
	`CREATE TABLE IF NOT EXISTS event_panel (
		run_id uuid NOT NULL REFERENCES event_study_run(run_id) ON DELETE CASCADE,
		rcept_no text NOT NULL,
		stock_code text NOT NULL,
		trade_date date NOT NULL,
		tau int NOT NULL,
		close double precision,
		close_norm double precision,
		ret_close double precision,
		ext_return double precision
	)`,
}

// PanelColumns lists the event_panel columns filled by SavePanel
var PanelColumns = []string{"run_id", "rcept_no", "stock_code", "trade_date", "tau", "close", "close_norm", "ret_close", "ext_return"}

// Run is a completed event study ready to be persisted
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Version   string
	Config    eventstudy.Config
	Stats     eventstudy.PanelStats
	Result    *eventstudy.Result
}

// nullable maps undefined values to SQL NULL
func nullable(val float64) interface{} {
	if math.IsNaN(val) {
		return nil
	}
	return val
}

func nullableDate(dt time.Time) interface{} {
	if dt.IsZero() {
		return nil
	}
	return dt
}

// Migrate creates the event study tables when they do not exist yet
func Migrate(ctx context.Context) error {
	trx, err := Trx(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range schema {
		if _, err := trx.Exec(ctx, stmt); err != nil {
			log.Error().Stack().Err(err).Msg("could not create event study tables")
			if err := trx.Rollback(ctx); err != nil {
				log.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return err
		}
	}

	return trx.Commit(ctx)
}

// SaveRun writes the run header, every event CAR and the AAR/CAAR series in a single transaction
func SaveRun(ctx context.Context, run *Run) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "database.SaveRun")
	defer span.End()

	span.SetAttributes(attribute.String("run_id", run.ID.String()))
	subLog := log.With().Str("RunID", run.ID.String()).Logger()

	trx, err := Trx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not begin transaction")
		return err
	}

	fail := func(err error, msg string) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		subLog.Error().Stack().Err(err).Msg(msg)
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	_, err = trx.Exec(ctx, `INSERT INTO event_study_run (run_id, created_at, version, pre, post, return_source, events,
		windowed, unknown_instrument, no_trading_day, insufficient_history) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.CreatedAt, run.Version, run.Config.Pre, run.Config.Post, string(run.Result.Source), run.Stats.Events,
		run.Stats.Windowed, run.Stats.UnknownInstrument, run.Stats.NoTradingDay, run.Stats.InsufficientHistory)
	if err != nil {
		return fail(err, "could not save run")
	}

	summary := run.Result.Summary
	for _, es := range summary.Events {
		for idx, w := range summary.Windows {
			_, err = trx.Exec(ctx, `INSERT INTO event_car (run_id, rcept_no, stock_code, event_trade_date, half_width, car)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				run.ID, es.Event.ReceiptNo, es.Event.StockCode, nullableDate(es.AnchorDate), w, nullable(es.CAR[idx]))
			if err != nil {
				return fail(err, "could not save event CAR")
			}
		}
	}

	aar := run.Result.AAR
	aarCol := aar.Col(eventstudy.ColAAR)
	nCol := aar.Col(eventstudy.ColN)
	caarCol := aar.Col(eventstudy.ColCAAR)
	for idx, tau := range aar.Index {
		_, err = trx.Exec(ctx, `INSERT INTO event_caar (run_id, tau, aar, n, caar) VALUES ($1, $2, $3, $4, $5)`,
			run.ID, tau, nullable(aarCol[idx]), int(nCol[idx]), nullable(caarCol[idx]))
		if err != nil {
			return fail(err, "could not save CAAR")
		}
	}

	if err := trx.Commit(ctx); err != nil {
		return fail(err, "could not commit run")
	}

	subLog.Info().Int("NumEvents", len(summary.Events)).Int("NumOffsets", aar.Len()).Msg("saved run to database")
	return nil
}

// SavePanel bulk loads the panel rows of a run that was saved with SaveRun
func SavePanel(ctx context.Context, runID uuid.UUID, panel *eventstudy.Panel) (int64, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "database.SavePanel")
	defer span.End()

	trx, err := Trx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not begin transaction")
		return 0, err
	}

	src := pgx.CopyFromSlice(panel.Len(), func(idx int) ([]interface{}, error) {
		row := panel.Rows[idx]
		return []interface{}{
			runID,
			row.Event.ReceiptNo,
			row.Event.StockCode,
			row.Date,
			row.Tau,
			nullable(row.Close),
			nullable(row.CloseNorm),
			nullable(row.RetClose),
			nullable(row.ExternalReturn),
		}, nil
	})

	count, err := trx.CopyFrom(ctx, pgx.Identifier{"event_panel"}, PanelColumns, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "copy failed")
		log.Error().Stack().Err(err).Str("RunID", runID.String()).Msg("could not copy panel rows")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return 0, err
	}

	if err := trx.Commit(ctx); err != nil {
		return 0, err
	}

	log.Info().Str("RunID", runID.String()).Int64("NumRows", count).Msg("saved panel to database")
	return count, nil
}
