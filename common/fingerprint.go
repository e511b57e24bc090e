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

package common

import (
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"
)

// Fingerprint returns the hex encoded blake3 digest of the (decompressed) contents of fn
func Fingerprint(fn string) (string, error) {
	fh, err := OpenFile(fn)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, fh); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
