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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-eventstudy/dataframe"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
)

var _ = Describe("Aligner", func() {
	var (
		series *dataframe.DataFrame[time.Time]
	)

	BeforeEach(func() {
		series = priceSeries(monday, linearCloses(100, 10), nil)
	})

	DescribeTable("finds the first trading day on or after the filing date", func(dt time.Time, expectedIdx int, expectedOk bool) {
		idx, ok := eventstudy.NextTradingDay(series, dt)
		Expect(ok).To(Equal(expectedOk))
		Expect(idx).To(Equal(expectedIdx))
	},
		Entry("before the series begins", time.Date(2022, 12, 25, 0, 0, 0, 0, time.UTC), 0, true),
		Entry("on a trading day", time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC), 2, true),
		Entry("on a saturday", time.Date(2023, 1, 7, 0, 0, 0, 0, time.UTC), 5, true),
		Entry("on the last trading day", time.Date(2023, 1, 13, 0, 0, 0, 0, time.UTC), 9, true),
		Entry("after the last trading day", time.Date(2023, 1, 14, 0, 0, 0, 0, time.UTC), -1, false),
	)

	It("never finds a trading day in an empty series", func() {
		_, ok := eventstudy.NextTradingDay(&dataframe.DataFrame[time.Time]{}, monday)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Window builder", func() {
	Context("with 100 trading days of history", func() {
		var (
			series *dataframe.DataFrame[time.Time]
		)

		BeforeEach(func() {
			series = priceSeries(monday, linearCloses(100, 100), nil)
		})

		It("builds 41 rows labelled -20..20 for a +/- 20 day window", func() {
			win, err := eventstudy.BuildWindow(series, 50, 20, 20)
			Expect(err).To(BeNil())
			Expect(win.Len()).To(Equal(41))
			Expect(win.Frame.Len()).To(Equal(41))
			for idx, tau := range win.Tau {
				Expect(tau).To(Equal(idx - 20))
			}
			Expect(win.Anchor).To(Equal(series.Index[50]))
			Expect(win.Frame.Index[20]).To(Equal(series.Index[50]))
			Expect(win.Frame.Index[0]).To(Equal(series.Index[30]))
			Expect(win.Frame.Index[40]).To(Equal(series.Index[70]))
		})

		It("normalizes close to exactly 1 on the anchor day", func() {
			win, err := eventstudy.BuildWindow(series, 50, 20, 20)
			Expect(err).To(BeNil())
			norm := win.Frame.Col(eventstudy.ColCloseNorm)
			Expect(norm[20]).To(Equal(1.0))
			Expect(norm[0]).To(Equal(130.0 / 150.0))
		})

		It("leaves ret_close undefined on the first row only", func() {
			win, err := eventstudy.BuildWindow(series, 50, 20, 20)
			Expect(err).To(BeNil())
			ret := win.Frame.Col(eventstudy.ColRetClose)
			Expect(isNaN(ret[0])).To(BeTrue())
			for _, val := range ret[1:] {
				Expect(isNaN(val)).To(BeFalse())
			}
			Expect(ret[21]).To(Equal((151.0 - 150.0) / 150.0))
		})

		It("does not modify the underlying series", func() {
			_, err := eventstudy.BuildWindow(series, 50, 20, 20)
			Expect(err).To(BeNil())
			Expect(series.ColNames).To(HaveLen(5))
		})

		It("supports a window of just the anchor day", func() {
			win, err := eventstudy.BuildWindow(series, 0, 0, 0)
			Expect(err).To(BeNil())
			Expect(win.Tau).To(Equal([]int{0}))
			Expect(win.Frame.Col(eventstudy.ColCloseNorm)).To(Equal([]float64{1}))
		})

		DescribeTable("refuses to pad or truncate", func(anchorIdx, pre, post int) {
			_, err := eventstudy.BuildWindow(series, anchorIdx, pre, post)
			Expect(err).To(MatchError(eventstudy.ErrInsufficientHistory))
		},
			Entry("anchor too close to the start", 19, 20, 20),
			Entry("anchor at the very start", 0, 1, 0),
			Entry("anchor too close to the end", 80, 20, 20),
			Entry("anchor at the very end", 99, 0, 1),
			Entry("anchor outside the series", 100, 0, 0),
		)

		It("accepts anchors exactly at the boundaries", func() {
			_, err := eventstudy.BuildWindow(series, 20, 20, 20)
			Expect(err).To(BeNil())
			_, err = eventstudy.BuildWindow(series, 79, 20, 20)
			Expect(err).To(BeNil())
		})

		It("rejects negative half-widths", func() {
			_, err := eventstudy.BuildWindow(series, 50, -1, 20)
			Expect(err).To(MatchError(eventstudy.ErrInvalidConfig))
		})
	})

	Context("with 50 consecutive trading days closing 100, 101, 102, ...", func() {
		It("windows index 15..35 around an event filed on day 25", func() {
			series := priceSeries(monday, linearCloses(100, 50), nil)
			closes := series.Col("Close")

			idx, ok := eventstudy.NextTradingDay(series, series.Index[25])
			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(25))

			win, err := eventstudy.BuildWindow(series, idx, 10, 10)
			Expect(err).To(BeNil())
			Expect(win.Frame.Index[0]).To(Equal(series.Index[15]))
			Expect(win.Frame.Index[20]).To(Equal(series.Index[35]))

			norm := win.Frame.Col(eventstudy.ColCloseNorm)
			ret := win.Frame.Col(eventstudy.ColRetClose)
			Expect(norm[20]).To(Equal(closes[35] / closes[25]))
			Expect(ret[11]).To(Equal((closes[26] - closes[25]) / closes[25]))
		})
	})
})
