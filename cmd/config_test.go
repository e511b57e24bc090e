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

package cmd

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
	"github.com/spf13/viper"
)

var _ = Describe("Configuration", func() {
	AfterEach(func() {
		for _, key := range []string{"window.pre", "window.post", "window.car", "returns.source", "panel.workers"} {
			viper.Set(key, nil)
		}
	})

	It("uses the flag defaults", func() {
		cfg, err := configFromViper()
		Expect(err).To(BeNil())
		Expect(cfg.Pre).To(Equal(20))
		Expect(cfg.Post).To(Equal(20))
		Expect(cfg.CARWindows).To(Equal([]int{1, 5, 20}))
		Expect(cfg.CodeWidth).To(Equal(data.DefaultCodeWidth))
		Expect(cfg.ReturnSource).To(Equal(eventstudy.ReturnAuto))
	})

	It("reads overrides", func() {
		viper.Set("window.pre", 10)
		viper.Set("window.post", 5)
		viper.Set("window.car", []int{2, 4})
		viper.Set("returns.source", "window")
		viper.Set("panel.workers", 4)

		cfg, err := configFromViper()
		Expect(err).To(BeNil())
		Expect(cfg.Pre).To(Equal(10))
		Expect(cfg.Post).To(Equal(5))
		Expect(cfg.CARWindows).To(Equal([]int{2, 4}))
		Expect(cfg.ReturnSource).To(Equal(eventstudy.ReturnWindow))
		Expect(cfg.Workers).To(Equal(4))
	})

	It("accepts CAR windows as a comma separated string", func() {
		viper.Set("window.car", "1, 3,10")
		windows, err := carWindows()
		Expect(err).To(BeNil())
		Expect(windows).To(Equal([]int{1, 3, 10}))
	})

	It("rejects malformed CAR windows", func() {
		viper.Set("window.car", "1,x")
		_, err := carWindows()
		Expect(err).To(MatchError(eventstudy.ErrInvalidConfig))
	})

	It("rejects a repeated CAR window", func() {
		viper.Set("window.car", "1,1")
		_, err := configFromViper()
		Expect(err).To(MatchError(eventstudy.ErrInvalidConfig))
	})

	It("rejects an unknown return source", func() {
		viper.Set("returns.source", "log")
		_, err := configFromViper()
		Expect(err).To(MatchError(eventstudy.ErrInvalidConfig))
	})

	It("rejects negative half-widths", func() {
		viper.Set("window.pre", -1)
		_, err := configFromViper()
		Expect(err).To(MatchError(eventstudy.ErrInvalidConfig))
	})

	It("renders sanity tables", func() {
		ev := &data.Event{ReceiptNo: "1", StockCode: "005930"}
		panel := &eventstudy.Panel{Rows: []*eventstudy.Row{
			{Event: ev, Date: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), Tau: 0, Close: 100, CloseNorm: 1},
		}}
		Expect(panelHead(panel, sanityRows)).To(ContainSubstring("2023-01-02"))

		summary := &eventstudy.Summary{Windows: []int{1}, Events: []*eventstudy.EventSummary{{Event: ev, CAR: []float64{0.02}}}}
		Expect(summaryHead(summary, sanityRows)).To(ContainSubstring("1 005930"))
	})
})
