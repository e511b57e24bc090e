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

package eventstudy_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/penny-vault/pv-eventstudy/dataframe"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
)

// panelRows builds a window of rows for ev with one row per return, tau starting at first
func panelRows(ev *data.Event, first int, rets []float64) []*eventstudy.Row {
	rows := make([]*eventstudy.Row, len(rets))
	for idx, ret := range rets {
		tau := first + idx
		rows[idx] = &eventstudy.Row{
			Event:          ev,
			AnchorDate:     ev.EventDate,
			Date:           ev.EventDate.AddDate(0, 0, tau),
			Tau:            tau,
			Close:          100,
			CloseNorm:      1,
			ExternalReturn: ret,
			RetClose:       ret,
		}
	}
	return rows
}

var _ = Describe("Aggregator", func() {
	var (
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("return source selection", func() {
		DescribeTable("resolves the requested source", func(returnColumn string, windowReturns bool, requested eventstudy.ReturnSource, expected eventstudy.ReturnSource, expectedErr error) {
			panel := &eventstudy.Panel{ReturnColumn: returnColumn, WindowReturns: windowReturns}
			src, err := eventstudy.SelectReturnSource(panel, requested)
			if expectedErr != nil {
				Expect(err).To(MatchError(expectedErr))
				return
			}
			Expect(err).To(BeNil())
			Expect(src).To(Equal(expected))
		},
			Entry("auto prefers the external return", "Change", true, eventstudy.ReturnAuto, eventstudy.ReturnExternal, nil),
			Entry("auto falls back to ret_close", "", true, eventstudy.ReturnAuto, eventstudy.ReturnWindow, nil),
			Entry("auto with neither", "", false, eventstudy.ReturnAuto, eventstudy.ReturnSource(""), eventstudy.ErrNoReturnColumn),
			Entry("window when both are present", "Change", true, eventstudy.ReturnWindow, eventstudy.ReturnWindow, nil),
			Entry("external when missing", "", true, eventstudy.ReturnExternal, eventstudy.ReturnSource(""), eventstudy.ErrNoReturnColumn),
			Entry("window when missing", "Change", false, eventstudy.ReturnWindow, eventstudy.ReturnSource(""), eventstudy.ErrNoReturnColumn),
			Entry("unknown source", "Change", true, eventstudy.ReturnSource("log"), eventstudy.ReturnSource(""), eventstudy.ErrInvalidConfig),
		)
	})

	Describe("cumulative abnormal returns", func() {
		It("sums the return over the window treating undefined returns as zero", func() {
			ev := event("E1", "005930", monday)
			panel := &eventstudy.Panel{
				Rows:          panelRows(ev, -2, []float64{0.5, 0.01, math.NaN(), 0.01, 0.5}),
				WindowReturns: true,
			}

			summary := eventstudy.Summarize(ctx, panel, eventstudy.ReturnWindow, []int{0, 1, 2})
			Expect(summary.Windows).To(Equal([]int{0, 1, 2}))
			Expect(summary.Events).To(HaveLen(1))

			es := summary.Events[0]
			Expect(es.Event.ReceiptNo).To(Equal("E1"))
			Expect(es.Event.StockCode).To(Equal("005930"))
			Expect(es.AnchorDate).To(Equal(monday))
			Expect(es.CAR[0]).To(Equal(0.0))
			Expect(es.CAR[1]).To(BeNumerically("~", 0.02, 1e-12))
			Expect(es.CAR[2]).To(BeNumerically("~", 1.02, 1e-12))
			Expect(es.CloseNormTau0).To(Equal(1.0))
		})

		It("produces one summary per event in panel order", func() {
			first := event("E1", "005930", monday)
			second := event("E2", "000660", monday.AddDate(0, 0, 1))
			rows := append(panelRows(first, -1, []float64{0.01, 0.02, 0.03}), panelRows(second, -1, []float64{-0.01, -0.02, -0.03})...)
			panel := &eventstudy.Panel{Rows: rows, WindowReturns: true}

			summary := eventstudy.Summarize(ctx, panel, eventstudy.ReturnWindow, []int{1})
			Expect(summary.Events).To(HaveLen(2))
			Expect(summary.Events[0].Event.ReceiptNo).To(Equal("E1"))
			Expect(summary.Events[0].CAR[0]).To(BeNumerically("~", 0.06, 1e-12))
			Expect(summary.Events[1].Event.ReceiptNo).To(Equal("E2"))
			Expect(summary.Events[1].CAR[0]).To(BeNumerically("~", -0.06, 1e-12))
		})

		It("reports an undefined anchor close when the event has no anchor row", func() {
			ev := event("E1", "005930", monday)
			panel := &eventstudy.Panel{Rows: panelRows(ev, 1, []float64{0.01, 0.01}), WindowReturns: true}

			summary := eventstudy.Summarize(ctx, panel, eventstudy.ReturnWindow, []int{1})
			Expect(isNaN(summary.Events[0].CloseNormTau0)).To(BeTrue())
			Expect(summary.Events[0].CAR[0]).To(BeNumerically("~", 0.01, 1e-12))
		})

		It("returns an empty summary for an empty panel", func() {
			summary := eventstudy.Summarize(ctx, &eventstudy.Panel{}, eventstudy.ReturnWindow, []int{1, 5})
			Expect(summary.Events).To(BeEmpty())
		})
	})

	Describe("average abnormal returns", func() {
		It("accumulates AAR into CAAR from the most negative offset", func() {
			first := event("E1", "005930", monday)
			second := event("E2", "000660", monday)
			rows := append(panelRows(first, -1, []float64{-0.02, 0.03, 0.01}), panelRows(second, -1, []float64{0, 0.01, -0.01})...)
			panel := &eventstudy.Panel{Rows: rows, WindowReturns: true}

			aar := eventstudy.AverageReturns(ctx, panel, eventstudy.ReturnWindow)
			Expect(aar.Index).To(Equal([]int{-1, 0, 1}))
			Expect(aar.ColNames).To(Equal([]string{eventstudy.ColAAR, eventstudy.ColN, eventstudy.ColCAAR}))

			Expect(aar.Col(eventstudy.ColAAR)[0]).To(BeNumerically("~", -0.01, 1e-12))
			Expect(aar.Col(eventstudy.ColAAR)[1]).To(BeNumerically("~", 0.02, 1e-12))
			Expect(aar.Col(eventstudy.ColAAR)[2]).To(BeNumerically("~", 0.0, 1e-12))

			Expect(aar.Col(eventstudy.ColCAAR)[0]).To(BeNumerically("~", -0.01, 1e-12))
			Expect(aar.Col(eventstudy.ColCAAR)[1]).To(BeNumerically("~", 0.01, 1e-12))
			Expect(aar.Col(eventstudy.ColCAAR)[2]).To(BeNumerically("~", 0.01, 1e-12))

			Expect(aar.Col(eventstudy.ColN)).To(Equal([]float64{2, 2, 2}))
		})

		It("counts rows per offset and averages undefined returns as zero", func() {
			first := event("E1", "005930", monday)
			second := event("E2", "000660", monday)
			rows := append(panelRows(first, -1, []float64{math.NaN(), 0.04}), panelRows(second, 0, []float64{0.02})...)
			panel := &eventstudy.Panel{Rows: rows, WindowReturns: true}

			aar := eventstudy.AverageReturns(ctx, panel, eventstudy.ReturnWindow)
			Expect(aar.Index).To(Equal([]int{-1, 0}))
			Expect(aar.Col(eventstudy.ColN)).To(Equal([]float64{1, 2}))
			Expect(aar.Col(eventstudy.ColAAR)[0]).To(Equal(0.0))
			Expect(aar.Col(eventstudy.ColAAR)[1]).To(BeNumerically("~", 0.03, 1e-12))
		})

		It("has no offsets for an empty panel", func() {
			aar := eventstudy.AverageReturns(ctx, &eventstudy.Panel{}, eventstudy.ReturnWindow)
			Expect(aar.Len()).To(Equal(0))
		})
	})

	Describe("end to end", func() {
		It("aggregates a built panel with a constant external return", func() {
			closes := linearCloses(100, 60)
			prices := &data.PriceTable{
				Series: dataframe.Map[time.Time]{
					"005930": priceSeries(monday, closes, constant(0.01, 60)),
				},
				ReturnColumn: data.DefaultReturnColumn,
			}

			cfg := eventstudy.DefaultConfig()
			cfg.Pre = 5
			cfg.Post = 5
			cfg.CARWindows = []int{1, 5}

			days := prices.Series["005930"].Index
			panel, err := eventstudy.BuildPanel(ctx, []*data.Event{event("E1", "005930", days[30])}, prices, cfg)
			Expect(err).To(BeNil())

			res, err := eventstudy.Aggregate(ctx, panel, cfg)
			Expect(err).To(BeNil())
			Expect(res.Source).To(Equal(eventstudy.ReturnExternal))
			Expect(res.Summary.Events[0].CAR[0]).To(BeNumerically("~", 0.03, 1e-12))
			Expect(res.Summary.Events[0].CAR[1]).To(BeNumerically("~", 0.11, 1e-12))
			Expect(res.AAR.Len()).To(Equal(11))
			Expect(res.AAR.Col(eventstudy.ColCAAR)[10]).To(BeNumerically("~", 0.11, 1e-12))
		})

		It("fails when the requested return is not in the panel", func() {
			cfg := eventstudy.DefaultConfig()
			cfg.ReturnSource = eventstudy.ReturnExternal
			_, err := eventstudy.Aggregate(ctx, &eventstudy.Panel{WindowReturns: true}, cfg)
			Expect(err).To(MatchError(eventstudy.ErrNoReturnColumn))
		})
	})
})
