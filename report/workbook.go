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
	"os"
	"path/filepath"

	"github.com/penny-vault/pv-eventstudy/eventstudy"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet = "summary"
	CAARSheet    = "caar"
)

// WriteWorkbook saves the event summary and the AAR/CAAR series as two sheets of an xlsx workbook
func WriteWorkbook(fn string, res *eventstudy.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(CAARSheet); err != nil {
		return err
	}

	if err := setRow(f, SummarySheet, 1, stringsToValues(SummaryHeader(res.Summary.Windows))); err != nil {
		return err
	}
	for idx, es := range res.Summary.Events {
		if err := setRow(f, SummarySheet, idx+2, summaryValues(es)); err != nil {
			return err
		}
	}

	if err := setRow(f, CAARSheet, 1, stringsToValues(CAARHeader())); err != nil {
		return err
	}
	for idx := range res.AAR.Index {
		if err := setRow(f, CAARSheet, idx+2, caarValues(res.AAR, idx)); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
		return err
	}
	if err := f.SaveAs(fn); err != nil {
		return err
	}

	log.Debug().Str("FileName", fn).Int("NumEvents", len(res.Summary.Events)).Int("NumOffsets", res.AAR.Len()).Msg("wrote workbook")
	return nil
}

func setRow(f *excelize.File, sheet string, row int, vals []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	cells := make([]any, len(vals))
	for idx, val := range vals {
		cells[idx] = cellValue(val)
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func stringsToValues(strs []string) []any {
	vals := make([]any, len(strs))
	for idx, s := range strs {
		vals[idx] = s
	}
	return vals
}
