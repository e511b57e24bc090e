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

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/penny-vault/pv-eventstudy/dataframe"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
)

const ColCloseNormTau0 = "close_norm_tau0"

// SummaryHeader lists the event summary columns: event metadata, one CAR column per window and the anchor close
func SummaryHeader(windows []int) []string {
	header := []string{
		data.ColReceiptNo,
		data.ColReceiptDate,
		eventstudy.ColEventDate,
		eventstudy.ColEventTradeDate,
		data.ColStockCode,
		data.ColCorpCode,
		data.ColCorpName,
		data.ColReportName,
		data.ColDisclosureType,
		data.ColDisclosureDetailType,
	}
	for _, w := range windows {
		header = append(header, eventstudy.CARColumn(w))
	}
	return append(header, ColCloseNormTau0)
}

// summaryValues returns one value per SummaryHeader column; metadata is a string and measures are float64
func summaryValues(es *eventstudy.EventSummary) []any {
	ev := es.Event
	vals := []any{
		ev.ReceiptNo,
		ev.ReceiptDate,
		formatDate(ev.EventDate),
		formatDate(es.AnchorDate),
		ev.StockCode,
		ev.CorpCode,
		ev.CorpName,
		ev.ReportName,
		ev.DisclosureType,
		ev.DisclosureDetailType,
	}
	for _, car := range es.CAR {
		vals = append(vals, car)
	}
	return append(vals, es.CloseNormTau0)
}

// CAARHeader lists the AAR/CAAR series columns
func CAARHeader() []string {
	return []string{eventstudy.ColTau, eventstudy.ColAAR, eventstudy.ColN, eventstudy.ColCAAR}
}

func caarValues(aar *dataframe.DataFrame[int], idx int) []any {
	return []any{
		aar.Index[idx],
		aar.Col(eventstudy.ColAAR)[idx],
		int(aar.Col(eventstudy.ColN)[idx]),
		aar.Col(eventstudy.ColCAAR)[idx],
	}
}

func formatValue(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return data.FormatFloat(v)
	default:
		return fmt.Sprint(v)
	}
}

func formatValues(vals []any, record []string) []string {
	record = record[:0]
	for _, val := range vals {
		record = append(record, formatValue(val))
	}
	return record
}

// WriteSummary saves the per-event summary to fn
func WriteSummary(fn string, summary *eventstudy.Summary, opts Options) error {
	return writeFile(fn, func(w io.Writer) error {
		return EncodeSummary(w, summary, opts)
	})
}

// EncodeSummary writes the per-event summary as CSV to w
func EncodeSummary(w io.Writer, summary *eventstudy.Summary, opts Options) error {
	header := SummaryHeader(summary.Windows)
	return encodeCSV(w, opts, header, func(writer *csv.Writer) error {
		record := make([]string, 0, len(header))
		for idx, es := range summary.Events {
			record = formatValues(summaryValues(es), record)
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write summary row %d: %w", idx, err)
			}
		}
		return nil
	})
}

// WriteCAAR saves the AAR/CAAR series to fn
func WriteCAAR(fn string, aar *dataframe.DataFrame[int], opts Options) error {
	return writeFile(fn, func(w io.Writer) error {
		return EncodeCAAR(w, aar, opts)
	})
}

// EncodeCAAR writes the AAR/CAAR series as CSV to w in ascending tau order
func EncodeCAAR(w io.Writer, aar *dataframe.DataFrame[int], opts Options) error {
	return encodeCSV(w, opts, CAARHeader(), func(writer *csv.Writer) error {
		record := make([]string, 0, 4)
		for idx := range aar.Index {
			record = formatValues(caarValues(aar, idx), record)
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write caar row %d: %w", idx, err)
			}
		}
		return nil
	})
}

// cellValue converts a value for a spreadsheet cell; undefined numbers become empty cells
func cellValue(val any) any {
	if v, ok := val.(float64); ok && math.IsNaN(v) {
		return nil
	}
	return val
}
