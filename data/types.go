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

package data

import (
	"time"

	"github.com/penny-vault/pv-eventstudy/dataframe"
)

const (
	DefaultCodeWidth    = 6
	CorpCodeWidth       = 8
	DefaultReturnColumn = "Change"
	ReceiptDateLayout   = "20060102"
	DateLayout          = "2006-01-02"
	DateTimeLayout      = "2006-01-02 15:04:05"
)

// Event columns as published by the disclosure listing
const (
	ColReceiptNo            = "rcept_no"
	ColReceiptDate          = "rcept_dt"
	ColCorpCode             = "corp_code"
	ColStockCode            = "stock_code"
	ColCorpName             = "corp_name"
	ColReportName           = "report_nm"
	ColDisclosureType       = "pblntf_ty"
	ColDisclosureDetailType = "pblntf_detail_ty"
	ColDate                 = "Date"
)

type Metric string

const (
	MetricOpen   Metric = "Open"
	MetricHigh   Metric = "High"
	MetricLow    Metric = "Low"
	MetricClose  Metric = "Close"
	MetricVolume Metric = "Volume"
)

// PriceMetrics lists the bar fields every price series carries, in column order
var PriceMetrics = []Metric{MetricOpen, MetricHigh, MetricLow, MetricClose, MetricVolume}

// Event is a single corporate disclosure. Events are immutable once loaded.
type Event struct {
	ReceiptNo            string
	ReceiptDate          string
	EventDate            time.Time
	CorpCode             string
	StockCode            string
	CorpName             string
	ReportName           string
	DisclosureType       string
	DisclosureDetailType string
}

// PriceTable maps a zero-padded stock code to its daily price series. Each series is indexed by trading date in
// strictly increasing order and has one column per PriceMetrics entry, followed by ReturnColumn when the source
// carried a precomputed daily return. The table is read-only once loaded.
type PriceTable struct {
	Series       dataframe.Map[time.Time]
	ReturnColumn string
}

// HasReturns reports whether the price series carry a precomputed daily return
func (pt *PriceTable) HasReturns() bool {
	return pt.ReturnColumn != ""
}

// Lookup returns the price series for code
func (pt *PriceTable) Lookup(code string) (*dataframe.DataFrame[time.Time], bool) {
	series, ok := pt.Series[code]
	return series, ok
}
