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
	"path/filepath"
	"time"

	"github.com/penny-vault/pv-eventstudy/common"
	"github.com/penny-vault/pv-eventstudy/data"
	"github.com/rs/zerolog/log"
)

const (
	PanelFile    = "event_panel.csv"
	SummaryFile  = "event_summary.csv"
	CAARFile     = "caar.csv"
	WorkbookFile = "event_study.xlsx"
	ManifestFile = "manifest.json"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options control how CSV outputs are written
type Options struct {
	// BOM prefixes each CSV file with a UTF-8 byte order mark so spreadsheet tools detect the encoding
	BOM bool

	// Compress writes lz4 compressed files with an additional .lz4 extension
	Compress bool
}

// Path returns the location of the output file name in dir, taking compression into account
func (opts Options) Path(dir, name string) string {
	fn := filepath.Join(dir, name)
	if opts.Compress {
		fn += common.LZ4Ext
	}
	return fn
}

type rowEncoder func(w *csv.Writer) error

func writeFile(fn string, encode func(io.Writer) error) error {
	fh, err := common.CreateFile(fn)
	if err != nil {
		return err
	}

	if err := encode(fh); err != nil {
		fh.Close()
		return fmt.Errorf("%s: %w", fn, err)
	}

	if err := fh.Close(); err != nil {
		return err
	}

	log.Debug().Str("FileName", fn).Bool("Compressed", common.IsCompressed(fn)).Msg("wrote file")
	return nil
}

func encodeCSV(w io.Writer, opts Options, header []string, rows rowEncoder) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if err := rows(writer); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

func formatDate(dt time.Time) string {
	if dt.IsZero() {
		return ""
	}
	return dt.Format(data.DateLayout)
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return data.ParseDate(s)
}
