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

package eventstudy

import (
	"fmt"
	"time"

	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/penny-vault/pv-eventstudy/dataframe"
)

const (
	ColTau            = "tau"
	ColEventDate      = "event_date"
	ColEventTradeDate = "event_trade_date"
	ColCloseNorm      = "close_norm"
	ColRetClose       = "ret_close"
)

// Window is a contiguous run of pre + post + 1 trading days centered on an anchor trading day
type Window struct {
	Anchor    time.Time
	AnchorIdx int

	// Tau is the offset of each row from the anchor day, running from -pre to +post
	Tau []int

	// Frame holds the price columns of the underlying series followed by close_norm and ret_close
	Frame *dataframe.DataFrame[time.Time]
}

// BuildWindow slices series[anchorIdx-pre : anchorIdx+post] (inclusive) and labels the rows with their offset from
// the anchor. Windows are never padded or truncated: if either edge falls outside the series ErrInsufficientHistory
// is returned. close_norm is Close divided by the anchor day Close; ret_close is the simple return of Close relative
// to the previous row in the window and is therefore NaN on the first row.
func BuildWindow(series *dataframe.DataFrame[time.Time], anchorIdx, pre, post int) (*Window, error) {
	if pre < 0 || post < 0 {
		return nil, fmt.Errorf("%w: window half-widths must be non-negative (pre=%d, post=%d)", ErrInvalidConfig, pre, post)
	}

	if anchorIdx < 0 || anchorIdx >= series.Len() {
		return nil, fmt.Errorf("%w: anchor %d outside series of length %d", ErrInsufficientHistory, anchorIdx, series.Len())
	}

	begin := anchorIdx - pre
	end := anchorIdx + post
	if begin < 0 || end >= series.Len() {
		return nil, ErrInsufficientHistory
	}

	frame, err := series.Slice(begin, end+1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientHistory, err.Error())
	}

	closeCol := frame.Col(string(data.MetricClose))
	if closeCol == nil {
		return nil, fmt.Errorf("%w: %s", dataframe.ErrColumnNotFound, data.MetricClose)
	}

	closeDf := &dataframe.DataFrame[time.Time]{
		Index:    frame.Index,
		ColNames: []string{string(data.MetricClose)},
		Vals:     [][]float64{closeCol},
	}

	frame.Insert(ColCloseNorm, closeDf.DivScalar(closeCol[pre]).Vals[0])
	frame.Insert(ColRetClose, closeDf.PctChange().Vals[0])

	tau := make([]int, frame.Len())
	for idx := range tau {
		tau[idx] = idx - pre
	}

	return &Window{
		Anchor:    series.Index[anchorIdx],
		AnchorIdx: anchorIdx,
		Tau:       tau,
		Frame:     frame,
	}, nil
}

// Len returns the number of trading days in the window
func (w *Window) Len() int {
	return len(w.Tau)
}
