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
	"strings"

	"github.com/penny-vault/pv-eventstudy/data"
)

// ReturnSource identifies which per-row return feeds CAR and AAR
type ReturnSource string

const (
	// ReturnAuto prefers ReturnExternal and falls back to ReturnWindow
	ReturnAuto ReturnSource = "auto"

	// ReturnExternal is the precomputed daily return carried by the price feed
	ReturnExternal ReturnSource = "external"

	// ReturnWindow is ret_close, the return chained within each event window
	ReturnWindow ReturnSource = "window"
)

// ParseReturnSource converts a configuration value into a ReturnSource
func ParseReturnSource(s string) (ReturnSource, error) {
	switch ReturnSource(strings.ToLower(strings.TrimSpace(s))) {
	case ReturnAuto, "":
		return ReturnAuto, nil
	case ReturnExternal:
		return ReturnExternal, nil
	case ReturnWindow:
		return ReturnWindow, nil
	default:
		return "", fmt.Errorf("%w: unknown return source %q", ErrInvalidConfig, s)
	}
}

// Config controls window construction and aggregation
type Config struct {
	// Pre is the number of trading days before the anchor day
	Pre int

	// Post is the number of trading days after the anchor day
	Post int

	// CARWindows lists the half-widths w of the symmetric [-w, +w] CAR windows
	CARWindows []int

	// CodeWidth is the zero-padded width of stock codes
	CodeWidth int

	// ProgressEvery controls how often (in events) panel progress is logged; 0 disables progress logging
	ProgressEvery int

	// Workers is the number of events windowed concurrently; values below 2 build the panel sequentially
	Workers int

	// ReturnSource selects the return used for CAR and AAR
	ReturnSource ReturnSource
}

// DefaultConfig returns a +/- 20 trading day study with CARs over [-1,1], [-5,5] and [-20,20]
func DefaultConfig() Config {
	return Config{
		Pre:           20,
		Post:          20,
		CARWindows:    []int{1, 5, 20},
		CodeWidth:     data.DefaultCodeWidth,
		ProgressEvery: 50,
		Workers:       1,
		ReturnSource:  ReturnAuto,
	}
}

// Validate checks that the configuration describes a buildable study
func (cfg Config) Validate() error {
	if cfg.Pre < 0 || cfg.Post < 0 {
		return fmt.Errorf("%w: window half-widths must be non-negative (pre=%d, post=%d)", ErrInvalidConfig, cfg.Pre, cfg.Post)
	}

	seen := make(map[int]bool, len(cfg.CARWindows))
	for _, w := range cfg.CARWindows {
		if w < 0 {
			return fmt.Errorf("%w: CAR window width must be non-negative (%d)", ErrInvalidConfig, w)
		}
		if seen[w] {
			return fmt.Errorf("%w: CAR window width %d is listed more than once", ErrInvalidConfig, w)
		}
		seen[w] = true
	}

	if cfg.CodeWidth <= 0 {
		return fmt.Errorf("%w: stock code width must be positive (%d)", ErrInvalidConfig, cfg.CodeWidth)
	}

	if cfg.ProgressEvery < 0 {
		return fmt.Errorf("%w: progress interval must be non-negative (%d)", ErrInvalidConfig, cfg.ProgressEvery)
	}

	if _, err := ParseReturnSource(string(cfg.ReturnSource)); err != nil {
		return err
	}

	return nil
}

// CARColumn names the event summary column holding CAR over [-w, +w]
func CARColumn(w int) string {
	return fmt.Sprintf("CAR_m%d_p%d", w, w)
}
