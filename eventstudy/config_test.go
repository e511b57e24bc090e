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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
)

var _ = Describe("Config", func() {
	It("defaults to a +/- 20 day study", func() {
		cfg := eventstudy.DefaultConfig()
		Expect(cfg.Pre).To(Equal(20))
		Expect(cfg.Post).To(Equal(20))
		Expect(cfg.CARWindows).To(Equal([]int{1, 5, 20}))
		Expect(cfg.CodeWidth).To(Equal(6))
		Expect(cfg.ReturnSource).To(Equal(eventstudy.ReturnAuto))
		Expect(cfg.Validate()).To(Succeed())
	})

	DescribeTable("rejects invalid settings", func(mutate func(*eventstudy.Config)) {
		cfg := eventstudy.DefaultConfig()
		mutate(&cfg)
		Expect(cfg.Validate()).To(MatchError(eventstudy.ErrInvalidConfig))
	},
		Entry("negative pre", func(cfg *eventstudy.Config) { cfg.Pre = -1 }),
		Entry("negative post", func(cfg *eventstudy.Config) { cfg.Post = -3 }),
		Entry("negative CAR width", func(cfg *eventstudy.Config) { cfg.CARWindows = []int{1, -5} }),
		Entry("repeated CAR width", func(cfg *eventstudy.Config) { cfg.CARWindows = []int{1, 5, 1} }),
		Entry("zero code width", func(cfg *eventstudy.Config) { cfg.CodeWidth = 0 }),
		Entry("negative progress interval", func(cfg *eventstudy.Config) { cfg.ProgressEvery = -1 }),
		Entry("unknown return source", func(cfg *eventstudy.Config) { cfg.ReturnSource = "log" }),
	)

	DescribeTable("parses return sources", func(in string, expected eventstudy.ReturnSource) {
		src, err := eventstudy.ParseReturnSource(in)
		Expect(err).To(BeNil())
		Expect(src).To(Equal(expected))
	},
		Entry("empty", "", eventstudy.ReturnAuto),
		Entry("auto", "auto", eventstudy.ReturnAuto),
		Entry("external with case and spaces", " External ", eventstudy.ReturnExternal),
		Entry("window", "window", eventstudy.ReturnWindow),
	)

	It("names CAR columns by half-width", func() {
		Expect(eventstudy.CARColumn(1)).To(Equal("CAR_m1_p1"))
		Expect(eventstudy.CARColumn(20)).To(Equal("CAR_m20_p20"))
	})
})
