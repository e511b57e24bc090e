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
	"gonum.org/v1/gonum/floats"
)

// CumSum computes the running sum of every column and returns a new dataframe
func (df *DataFrame[T]) CumSum() *DataFrame[T] {
	df2 := df.Copy()
	for colIdx, col := range df.Vals {
		floats.CumSum(df2.Vals[colIdx], col)
	}
	return df2
}

// DivScalar divides all columns in dataframe df by the scalar and returns a new dataframe
func (df *DataFrame[T]) DivScalar(scalar float64) *DataFrame[T] {
	df = df.Copy()

	for colIdx := range df.ColNames {
		for rowIdx := range df.Vals[colIdx] {
			df.Vals[colIdx][rowIdx] /= scalar
		}
	}
	return df
}

// PctChange computes the simple return (x[i] - x[i-1]) / x[i-1] of every column with respect to the previous row
// and returns a new dataframe. The first row has no previous row and is NaN.
func (df *DataFrame[T]) PctChange() *DataFrame[T] {
	lagged := df.Lag(1)
	res := df.Copy()

	for colIdx := range res.Vals {
		for rowIdx, val := range res.Vals[colIdx] {
			prev := lagged.Vals[colIdx][rowIdx]
			res.Vals[colIdx][rowIdx] = (val - prev) / prev
		}
	}
	return res
}
