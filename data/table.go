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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/penny-vault/pv-eventstudy/common"
	"github.com/rs/zerolog/log"
)

const utf8BOM = "\uFEFF"

// Table is a column addressable view of a CSV file
type Table struct {
	Header []string
	Rows   [][]string

	colMap map[string]int
}

// LoadTable reads the CSV file fn. Files ending in .lz4 are decompressed transparently. A file that does not exist
// results in ErrMissingInput
func LoadTable(fn string) (*Table, error) {
	fh, err := common.OpenFile(fn)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, fn)
		}
		return nil, err
	}
	defer fh.Close()

	tbl, err := ReadTable(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	log.Debug().Str("FileName", fn).Int("NumRows", len(tbl.Rows)).Int("NumCols", len(tbl.Header)).Msg("loaded table")
	return tbl, nil
}

// ReadTable parses CSV data with a header row from r
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingInput)
		}
		return nil, err
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	tbl := &Table{
		Header: header,
		Rows:   make([][]string, 0, 1024),
		colMap: make(map[string]int, len(header)),
	}

	for idx, col := range header {
		col = strings.TrimSpace(col)
		header[idx] = col
		if _, ok := tbl.colMap[col]; !ok {
			tbl.colMap[col] = idx
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%w: %s", ErrMalformedRow, err.Error())
			}
			return nil, err
		}
		tbl.Rows = append(tbl.Rows, record)
	}

	return tbl, nil
}

// Has reports whether the table has a column named col
func (tbl *Table) Has(col string) bool {
	_, ok := tbl.colMap[col]
	return ok
}

// Require returns ErrMissingColumn naming every column in cols that is absent from the table
func (tbl *Table) Require(cols ...string) error {
	missing := make([]string, 0, len(cols))
	for _, col := range cols {
		if !tbl.Has(col) {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Value returns the trimmed value of col in row; absent columns yield an empty string
func (tbl *Table) Value(row []string, col string) string {
	idx, ok := tbl.colMap[col]
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Float parses col in row as a float64. Empty cells are NaN
func (tbl *Table) Float(row []string, col string) (float64, error) {
	return ParseFloat(tbl.Value(row, col))
}

// ParseFloat parses s as a float64 where an empty or missing-value marker is NaN
func ParseFloat(s string) (float64, error) {
	if isMissing(s) {
		return math.NaN(), nil
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return val, nil
}

// FormatFloat renders val for CSV output; NaN is written as an empty cell
func FormatFloat(val float64) string {
	if math.IsNaN(val) {
		return ""
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

func isMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "<na>", "none", "null":
		return true
	default:
		return false
	}
}

// NormalizeCode trims code, removes a trailing fractional part (e.g. "5930.0" that results from a numeric round
// trip) and left pads the result with zeros to width. Missing values normalize to an empty string
func NormalizeCode(code string, width int) string {
	s := strings.TrimSpace(code)
	if isMissing(s) {
		return ""
	}

	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		s = s[:idx]
	}

	if s == "" {
		return ""
	}

	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}
