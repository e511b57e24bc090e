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

package report_test

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
	"github.com/penny-vault/pv-eventstudy/report"
)

var _ = Describe("Panel file", func() {
	var (
		panel *eventstudy.Panel
	)

	BeforeEach(func() {
		panel, _ = studyPanel()
		Expect(panel.Len()).To(Equal(14))
	})

	It("writes the columns in file order", func() {
		var buf bytes.Buffer
		Expect(report.EncodePanel(&buf, panel, report.Options{})).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(15))
		Expect(lines[0]).To(Equal("Date,stock_code,Open,High,Low,Close,Volume,Change,tau,rcept_no,rcept_dt,event_date,event_trade_date,corp_code,corp_name,report_nm,pblntf_ty,pblntf_detail_ty,close_norm,ret_close"))
		Expect(lines[1]).To(Equal(`2023-01-11,005930,107,107,107,107,1000,0.01,-3,20230116000001,20230114,2023-01-14,2023-01-16,00126380,"Samsung, Electronics",Major Matters Report,B,B001,0.9727272727272728,`))
	})

	It("prefixes a byte order mark when asked", func() {
		var buf bytes.Buffer
		Expect(report.EncodePanel(&buf, panel, report.Options{BOM: true})).To(Succeed())
		Expect(buf.Bytes()[:3]).To(Equal([]byte{0xEF, 0xBB, 0xBF}))
	})

	It("round trips through a compressed file", func() {
		opts := report.Options{Compress: true, BOM: true}
		fn := opts.Path(GinkgoT().TempDir(), report.PanelFile)
		Expect(fn).To(HaveSuffix("event_panel.csv.lz4"))
		Expect(report.WritePanel(fn, panel, opts)).To(Succeed())

		loaded, err := report.ReadPanel(fn, data.DefaultCodeWidth, data.DefaultReturnColumn)
		Expect(err).To(BeNil())
		Expect(loaded.Len()).To(Equal(panel.Len()))
		Expect(loaded.ReturnColumn).To(Equal(data.DefaultReturnColumn))
		Expect(loaded.WindowReturns).To(BeTrue())
		Expect(loaded.Stats.Events).To(Equal(2))

		for idx, row := range panel.Rows {
			got := loaded.Rows[idx]
			Expect(got.Event.ReceiptNo).To(Equal(row.Event.ReceiptNo))
			Expect(got.Event.StockCode).To(Equal(row.Event.StockCode))
			Expect(got.Event.CorpName).To(Equal(row.Event.CorpName))
			Expect(got.Event.EventDate).To(Equal(row.Event.EventDate))
			Expect(got.AnchorDate).To(Equal(row.AnchorDate))
			Expect(got.Date).To(Equal(row.Date))
			Expect(got.Tau).To(Equal(row.Tau))
			Expect(got.Close).To(Equal(row.Close))
			Expect(got.ExternalReturn).To(Equal(row.ExternalReturn))
			Expect(got.CloseNorm).To(Equal(row.CloseNorm))
			if math.IsNaN(row.RetClose) {
				Expect(math.IsNaN(got.RetClose)).To(BeTrue())
			} else {
				Expect(got.RetClose).To(Equal(row.RetClose))
			}
		}

		Expect(loaded.Rows[0].Event).To(BeIdenticalTo(loaded.Rows[6].Event))
		Expect(loaded.Rows[0].Event).ToNot(BeIdenticalTo(loaded.Rows[7].Event))
	})

	It("reads a panel without an external return", func() {
		csv := "Date,stock_code,Close,tau,rcept_no,close_norm,ret_close\n2023-01-02,5930,100,0,1,1,\n2023-01-03,5930,101,1,1,1.01,0.01\n"
		loaded, err := report.DecodePanel(strings.NewReader(csv), data.DefaultCodeWidth, data.DefaultReturnColumn)
		Expect(err).To(BeNil())
		Expect(loaded.ReturnColumn).To(Equal(""))
		Expect(loaded.WindowReturns).To(BeTrue())
		Expect(loaded.Rows[0].Event.StockCode).To(Equal("005930"))
		Expect(loaded.Rows[1].Date).To(Equal(time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)))
		Expect(math.IsNaN(loaded.Rows[1].ExternalReturn)).To(BeTrue())
		Expect(math.IsNaN(loaded.Rows[0].Open)).To(BeTrue())
	})

	It("requires the identifying columns", func() {
		_, err := report.DecodePanel(strings.NewReader("Date,stock_code,Close\n2023-01-02,5930,100\n"), data.DefaultCodeWidth, "")
		Expect(err).To(MatchError(data.ErrMissingColumn))
	})

	It("rejects a malformed offset", func() {
		_, err := report.DecodePanel(strings.NewReader("Date,stock_code,tau,rcept_no\n2023-01-02,5930,x,1\n"), data.DefaultCodeWidth, "")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("row 2: tau"))
	})

	It("reports a missing panel file", func() {
		_, err := report.ReadPanel(filepath.Join(GinkgoT().TempDir(), report.PanelFile), data.DefaultCodeWidth, "")
		Expect(err).To(MatchError(data.ErrMissingInput))
	})
})
