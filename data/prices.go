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
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/penny-vault/pv-eventstudy/dataframe"
	"github.com/rs/zerolog/log"
)

type priceRow struct {
	date time.Time
	vals []float64
}

// LoadPrices reads the daily prices CSV file fn. See PricesFromTable
func LoadPrices(fn string, codeWidth int, returnColumn string) (*PriceTable, error) {
	tbl, err := LoadTable(fn)
	if err != nil {
		return nil, err
	}
	return PricesFromTable(tbl, codeWidth, returnColumn)
}

// ReadPrices parses daily prices in CSV format from r. See PricesFromTable
func ReadPrices(r io.Reader, codeWidth int, returnColumn string) (*PriceTable, error) {
	tbl, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	return PricesFromTable(tbl, codeWidth, returnColumn)
}

// ParseDate parses a trading date written either as a plain date or as a date with a midnight time component
func ParseDate(s string) (time.Time, error) {
	dt, err := time.Parse(DateLayout, s)
	if err == nil {
		return dt, nil
	}

	dt, err = time.Parse(DateTimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC), nil
}

// PricesFromTable groups a long table of daily bars (one row per stock code and trading day) into one series per
// stock code. Date, stock_code, Open, High, Low, Close and Volume are required; returnColumn is carried along when
// present. Each series is sorted by date and duplicate dates are removed, keeping the first occurrence.
func PricesFromTable(tbl *Table, codeWidth int, returnColumn string) (*PriceTable, error) {
	required := []string{ColDate, ColStockCode}
	for _, metric := range PriceMetrics {
		required = append(required, string(metric))
	}
	if err := tbl.Require(required...); err != nil {
		return nil, err
	}

	colNames := make([]string, 0, len(PriceMetrics)+1)
	for _, metric := range PriceMetrics {
		colNames = append(colNames, string(metric))
	}

	pt := &PriceTable{
		Series: make(dataframe.Map[time.Time]),
	}

	if returnColumn != "" && tbl.Has(returnColumn) {
		pt.ReturnColumn = returnColumn
		colNames = append(colNames, returnColumn)
	}

	byCode := make(map[string][]priceRow)
	skipped := 0

	for rowIdx, row := range tbl.Rows {
		code := NormalizeCode(tbl.Value(row, ColStockCode), codeWidth)
		if code == "" {
			skipped++
			continue
		}

		dt, err := ParseDate(tbl.Value(row, ColDate))
		if err != nil {
			log.Debug().Str("StockCode", code).Str("Date", tbl.Value(row, ColDate)).Msg("could not parse trading date")
			skipped++
			continue
		}

		vals := make([]float64, len(colNames))
		for colIdx, colName := range colNames {
			vals[colIdx], err = tbl.Float(row, colName)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", rowIdx+2, colName, err)
			}
		}

		byCode[code] = append(byCode[code], priceRow{date: dt, vals: vals})
	}

	duplicates := 0
	for code, rows := range byCode {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].date.Before(rows[j].date)
		})

		series := &dataframe.DataFrame[time.Time]{
			ColNames: append([]string(nil), colNames...),
			Index:    make([]time.Time, 0, len(rows)),
			Vals:     make([][]float64, len(colNames)),
		}

		for colIdx := range series.Vals {
			series.Vals[colIdx] = make([]float64, 0, len(rows))
		}

		for _, row := range rows {
			if series.Len() > 0 && !series.Index[series.Len()-1].Before(row.date) {
				duplicates++
				continue
			}
			series.InsertRow(row.date, row.vals...)
		}

		pt.Series[code] = series
	}

	log.Info().Int("NumRows", len(tbl.Rows)).Int("NumCodes", len(pt.Series)).Int("Skipped", skipped).Int("Duplicates", duplicates).Str("ReturnColumn", pt.ReturnColumn).Msg("loaded prices")
	return pt, nil
}
