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
	"time"

	"github.com/penny-vault/pv-eventstudy/dataframe"
)

// NextTradingDay returns the position in series of the earliest trading day on or after dt. The boolean is false
// when dt falls after the last trading day in series. series must be sorted by date in ascending order.
func NextTradingDay(series *dataframe.DataFrame[time.Time], dt time.Time) (int, bool) {
	idx := series.SearchTime(dt)
	if idx >= series.Len() {
		return -1, false
	}
	return idx, true
}
