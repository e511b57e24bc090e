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
	"github.com/penny-vault/pv-eventstudy/eventstudy"
	"github.com/rs/zerolog/log"
)

// PanelHeader lists the panel columns in file order. The external return column is only present when the panel
// carries one
func PanelHeader(panel *eventstudy.Panel) []string {
	header := []string{data.ColDate, data.ColStockCode}
	for _, metric := range data.PriceMetrics {
		header = append(header, string(metric))
	}

	if panel.ReturnColumn != "" {
		header = append(header, panel.ReturnColumn)
	}

	return append(header,
		eventstudy.ColTau,
		data.ColReceiptNo,
		data.ColReceiptDate,
		eventstudy.ColEventDate,
		eventstudy.ColEventTradeDate,
		data.ColCorpCode,
		data.ColCorpName,
		data.ColReportName,
		data.ColDisclosureType,
		data.ColDisclosureDetailType,
		eventstudy.ColCloseNorm,
		eventstudy.ColRetClose,
	)
}

// WritePanel saves the long event panel to fn
func WritePanel(fn string, panel *eventstudy.Panel, opts Options) error {
	return writeFile(fn, func(w io.Writer) error {
		return EncodePanel(w, panel, opts)
	})
}

// EncodePanel writes the panel as CSV to w, one line per row in panel order
func EncodePanel(w io.Writer, panel *eventstudy.Panel, opts Options) error {
	return encodeCSV(w, opts, PanelHeader(panel), func(writer *csv.Writer) error {
		record := make([]string, 0, 21)
		for idx, row := range panel.Rows {
			ev := row.Event
			record = append(record[:0],
				formatDate(row.Date),
				ev.StockCode,
				data.FormatFloat(row.Open),
				data.FormatFloat(row.High),
				data.FormatFloat(row.Low),
				data.FormatFloat(row.Close),
				data.FormatFloat(row.Volume),
			)
			if panel.ReturnColumn != "" {
				record = append(record, data.FormatFloat(row.ExternalReturn))
			}
			record = append(record,
				strconv.Itoa(row.Tau),
				ev.ReceiptNo,
				ev.ReceiptDate,
				formatDate(ev.EventDate),
				formatDate(row.AnchorDate),
				ev.CorpCode,
				ev.CorpName,
				ev.ReportName,
				ev.DisclosureType,
				ev.DisclosureDetailType,
				data.FormatFloat(row.CloseNorm),
				data.FormatFloat(row.RetClose),
			)

			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write panel row %d: %w", idx, err)
			}
		}
		return nil
	})
}

// ReadPanel loads a panel previously saved with WritePanel. See DecodePanel
func ReadPanel(fn string, codeWidth int, returnColumn string) (*eventstudy.Panel, error) {
	tbl, err := data.LoadTable(fn)
	if err != nil {
		return nil, err
	}
	return PanelFromTable(tbl, codeWidth, returnColumn)
}

// DecodePanel parses a panel in CSV format from r. See PanelFromTable
func DecodePanel(r io.Reader, codeWidth int, returnColumn string) (*eventstudy.Panel, error) {
	tbl, err := data.ReadTable(r)
	if err != nil {
		return nil, err
	}
	return PanelFromTable(tbl, codeWidth, returnColumn)
}

// PanelFromTable rebuilds a panel from its tabular form. Date, stock_code, tau and rcept_no are required. Rows that
// share (rcept_no, stock_code) share one Event. The external return is taken from returnColumn and ret_close is only
// marked available when the column exists, so return source selection sees exactly what the file holds.
func PanelFromTable(tbl *data.Table, codeWidth int, returnColumn string) (*eventstudy.Panel, error) {
	if err := tbl.Require(data.ColDate, data.ColStockCode, eventstudy.ColTau, data.ColReceiptNo); err != nil {
		return nil, err
	}

	panel := &eventstudy.Panel{
		Rows:          make([]*eventstudy.Row, 0, len(tbl.Rows)),
		WindowReturns: tbl.Has(eventstudy.ColRetClose),
	}
	if returnColumn != "" && tbl.Has(returnColumn) {
		panel.ReturnColumn = returnColumn
	}

	events := make(map[string]*data.Event)

	for idx, record := range tbl.Rows {
		line := idx + 2

		code := data.NormalizeCode(tbl.Value(record, data.ColStockCode), codeWidth)
		receiptNo := tbl.Value(record, data.ColReceiptNo)

		key := receiptNo + "|" + code
		ev, ok := events[key]
		if !ok {
			var err error
			ev, err = panelEvent(tbl, record, receiptNo, code)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
			events[key] = ev
		}

		row, err := panelRow(tbl, record, ev, panel.ReturnColumn)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		panel.Rows = append(panel.Rows, row)
	}

	panel.Stats.Events = len(events)
	panel.Stats.Windowed = len(events)

	log.Info().Int("NumRows", panel.Len()).Int("NumEvents", len(events)).Str("ReturnColumn", panel.ReturnColumn).Bool("WindowReturns", panel.WindowReturns).Msg("loaded event panel")
	return panel, nil
}

func panelEvent(tbl *data.Table, record []string, receiptNo, code string) (*data.Event, error) {
	eventDate, err := parseOptionalDate(tbl.Value(record, eventstudy.ColEventDate))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", eventstudy.ColEventDate, err)
	}

	return &data.Event{
		ReceiptNo:            receiptNo,
		ReceiptDate:          tbl.Value(record, data.ColReceiptDate),
		EventDate:            eventDate,
		CorpCode:             data.NormalizeCode(tbl.Value(record, data.ColCorpCode), data.CorpCodeWidth),
		StockCode:            code,
		CorpName:             tbl.Value(record, data.ColCorpName),
		ReportName:           tbl.Value(record, data.ColReportName),
		DisclosureType:       tbl.Value(record, data.ColDisclosureType),
		DisclosureDetailType: tbl.Value(record, data.ColDisclosureDetailType),
	}, nil
}

func panelRow(tbl *data.Table, record []string, ev *data.Event, returnColumn string) (*eventstudy.Row, error) {
	dt, err := data.ParseDate(tbl.Value(record, data.ColDate))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", data.ColDate, err)
	}

	tau, err := strconv.Atoi(tbl.Value(record, eventstudy.ColTau))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", eventstudy.ColTau, err)
	}

	anchor, err := parseOptionalDate(tbl.Value(record, eventstudy.ColEventTradeDate))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", eventstudy.ColEventTradeDate, err)
	}

	row := &eventstudy.Row{
		Event:      ev,
		AnchorDate: anchor,
		Date:       dt,
		Tau:        tau,
	}

	fields := []struct {
		col string
		dst *float64
	}{
		{string(data.MetricOpen), &row.Open},
		{string(data.MetricHigh), &row.High},
		{string(data.MetricLow), &row.Low},
		{string(data.MetricClose), &row.Close},
		{string(data.MetricVolume), &row.Volume},
		{returnColumn, &row.ExternalReturn},
		{eventstudy.ColCloseNorm, &row.CloseNorm},
		{eventstudy.ColRetClose, &row.RetClose},
	}

	for _, field := range fields {
		if field.col == "" {
			*field.dst = math.NaN()
			continue
		}
		// absent columns read as empty values and therefore NaN
		*field.dst, err = tbl.Float(record, field.col)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.col, err)
		}
	}

	return row, nil
}
