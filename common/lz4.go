// Copyright 2021-2026
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

const (
	LZ4Ext = ".lz4"
)

// IsCompressed reports whether fn names an lz4 compressed file
func IsCompressed(fn string) bool {
	return strings.EqualFold(filepath.Ext(fn), LZ4Ext)
}

type compressedReader struct {
	io.Reader
	fh *os.File
}

func (r *compressedReader) Close() error {
	return r.fh.Close()
}

type compressedWriter struct {
	*lz4.Writer
	fh *os.File
}

func (w *compressedWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		w.fh.Close()
		return err
	}
	return w.fh.Close()
}

// OpenFile opens fn for reading. Files ending in .lz4 are decompressed on the fly
func OpenFile(fn string) (io.ReadCloser, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}

	if IsCompressed(fn) {
		return &compressedReader{Reader: lz4.NewReader(fh), fh: fh}, nil
	}
	return fh, nil
}

// CreateFile creates (or truncates) fn for writing. Files ending in .lz4 are compressed on the fly; the returned
// writer must be closed to flush the final lz4 frame
func CreateFile(fn string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
		return nil, err
	}

	fh, err := os.Create(fn)
	if err != nil {
		return nil, err
	}

	if IsCompressed(fn) {
		return &compressedWriter{Writer: lz4.NewWriter(fh), fh: fh}, nil
	}
	return fh, nil
}
