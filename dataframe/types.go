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

package dataframe

import (
	"errors"
	"time"
)

// IdxType enumerates the types a dataframe can be indexed by. Price series are
// indexed by trading date, cross-sectional statistics by relative offset.
type IdxType interface {
	time.Time | int | string
}

// DataFrame stores a table of values organized by an index
// the vals array is column major - e.g.,
// Open  Close
// 1     4
// 2     5
// 3     6
//
// Vals[0][0] = 1
// Vals[0][1] = 2
type DataFrame[T IdxType] struct {
	Index    []T
	ColNames []string
	Vals     [][]float64
}

var (
	ErrColumnNotFound   = errors.New("column not found")
	ErrSliceOutOfBounds = errors.New("slice bounds outside of dataframe")
)
