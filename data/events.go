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

package data

import (
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

// LoadEvents reads the disclosure events CSV file fn. See EventsFromTable
func LoadEvents(fn string, codeWidth int) ([]*Event, error) {
	tbl, err := LoadTable(fn)
	if err != nil {
		return nil, err
	}
	return EventsFromTable(tbl, codeWidth)
}

// ReadEvents parses disclosure events in CSV format from r. See EventsFromTable
func ReadEvents(r io.Reader, codeWidth int) ([]*Event, error) {
	tbl, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	return EventsFromTable(tbl, codeWidth)
}

// EventsFromTable converts a table of disclosures into events. The rcept_no, rcept_dt and stock_code columns are
// required; all other metadata columns are optional. Stock codes are zero padded to codeWidth and rcept_dt is parsed
// as YYYYMMDD. Rows without a stock code or with an unparseable filing date cannot be placed on a price series and
// are dropped.
func EventsFromTable(tbl *Table, codeWidth int) ([]*Event, error) {
	if err := tbl.Require(ColReceiptNo, ColReceiptDate, ColStockCode); err != nil {
		return nil, err
	}

	events := make([]*Event, 0, len(tbl.Rows))
	noCode := 0
	badDate := 0

	for _, row := range tbl.Rows {
		code := NormalizeCode(tbl.Value(row, ColStockCode), codeWidth)
		if code == "" {
			noCode++
			continue
		}

		receiptDate := tbl.Value(row, ColReceiptDate)
		eventDate, err := time.Parse(ReceiptDateLayout, receiptDate)
		if err != nil {
			log.Debug().Str("ReceiptNo", tbl.Value(row, ColReceiptNo)).Str("ReceiptDate", receiptDate).Msg("could not parse filing date")
			badDate++
			continue
		}

		events = append(events, &Event{
			ReceiptNo:            tbl.Value(row, ColReceiptNo),
			ReceiptDate:          receiptDate,
			EventDate:            eventDate,
			CorpCode:             NormalizeCode(tbl.Value(row, ColCorpCode), CorpCodeWidth),
			StockCode:            code,
			CorpName:             tbl.Value(row, ColCorpName),
			ReportName:           tbl.Value(row, ColReportName),
			DisclosureType:       tbl.Value(row, ColDisclosureType),
			DisclosureDetailType: tbl.Value(row, ColDisclosureDetailType),
		})
	}

	log.Info().Int("NumRows", len(tbl.Rows)).Int("NumEvents", len(events)).Int("NoStockCode", noCode).Int("BadFilingDate", badDate).Msg("loaded events")
	return events, nil
}
