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

package database_test

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"
	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/penny-vault/pv-eventstudy/database"
	"github.com/penny-vault/pv-eventstudy/dataframe"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
)

func studyResult() *eventstudy.Result {
	anchor := time.Date(2023, 1, 16, 0, 0, 0, 0, time.UTC)
	aar := &dataframe.DataFrame[int]{
		Index:    []int{-1, 0, 1},
		ColNames: []string{eventstudy.ColAAR, eventstudy.ColN, eventstudy.ColCAAR},
		Vals: [][]float64{
			{-0.01, 0.02, 0},
			{2, 2, 2},
			{-0.01, 0.01, 0.01},
		},
	}

	return &eventstudy.Result{
		Source: eventstudy.ReturnWindow,
		Summary: &eventstudy.Summary{
			Windows: []int{1, 5},
			Events: []*eventstudy.EventSummary{
				{
					Event:         &data.Event{ReceiptNo: "1", StockCode: "005930"},
					AnchorDate:    anchor,
					CAR:           []float64{0.02, 0.05},
					CloseNormTau0: 1,
				},
				{
					Event:         &data.Event{ReceiptNo: "2", StockCode: "000660"},
					AnchorDate:    anchor,
					CAR:           []float64{-0.01, math.NaN()},
					CloseNormTau0: 1,
				},
			},
		},
		AAR: aar,
	}
}

var _ = Describe("Run persistence", func() {
	var (
		ctx    context.Context
		dbPool pgxmock.PgxConnIface
		run    *database.Run
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)

		run = &database.Run{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
			Version:   "0.1.0",
			Config:    eventstudy.DefaultConfig(),
			Stats:     eventstudy.PanelStats{Events: 3, Windowed: 2, UnknownInstrument: 1},
			Result:    studyResult(),
		}
	})

	AfterEach(func() {
		Expect(database.OpenTransactions()).To(Equal(0))
	})

	It("writes the run, every CAR and the CAAR series in one transaction", func() {
		dbPool.ExpectBegin()
		dbPool.ExpectExec("INSERT INTO event_study_run").WillReturnResult(pgconn.CommandTag("INSERT 0 1"))
		for idx := 0; idx < 4; idx++ {
			dbPool.ExpectExec("INSERT INTO event_car").WillReturnResult(pgconn.CommandTag("INSERT 0 1"))
		}
		for idx := 0; idx < 3; idx++ {
			dbPool.ExpectExec("INSERT INTO event_caar").WillReturnResult(pgconn.CommandTag("INSERT 0 1"))
		}
		dbPool.ExpectCommit()

		Expect(database.SaveRun(ctx, run)).To(Succeed())
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	It("rolls back when a write fails", func() {
		dbPool.ExpectBegin()
		dbPool.ExpectExec("INSERT INTO event_study_run").WillReturnResult(pgconn.CommandTag("INSERT 0 1"))
		dbPool.ExpectExec("INSERT INTO event_car").WillReturnError(errors.New("duplicate key"))
		dbPool.ExpectRollback()

		Expect(database.SaveRun(ctx, run)).To(MatchError("duplicate key"))
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	It("creates the schema", func() {
		dbPool.ExpectBegin()
		for idx := 0; idx < 4; idx++ {
			dbPool.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgconn.CommandTag("CREATE TABLE"))
		}
		dbPool.ExpectCommit()

		Expect(database.Migrate(ctx)).To(Succeed())
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	It("does not write without a connection", func() {
		database.SetPool(nil)
		Expect(database.SaveRun(ctx, run)).To(MatchError(database.ErrNotConnected))
		_, err := database.SavePanel(ctx, run.ID, &eventstudy.Panel{})
		Expect(err).To(MatchError(database.ErrNotConnected))
	})
})
