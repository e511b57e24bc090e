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
	"runtime/debug"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Version", func() {
	It("formats release and pre-release versions", func() {
		Expect(Version{Major: 1, Minor: 2, Patch: 3}.String()).To(Equal("1.2.3"))
		Expect(Version{Major: 0, Minor: 1, Patch: 0, Suffix: "dev"}.String()).To(HavePrefix("0.1.0-dev"))
	})

	It("names the program and build metadata", func() {
		s := BuildVersionString()
		Expect(s).To(HavePrefix("pves v" + CurrentVersion.String()))
		Expect(s).To(ContainSubstring("Built with: go"))
		Expect(s).To(ContainSubstring("Build Date: "))
	})

	It("lists only the study modules", func() {
		deps := []*debug.Module{
			{Path: "gonum.org/v1/gonum", Version: "v0.11.0"},
			{Path: "github.com/spf13/cobra", Version: "v1.4.0"},
			{Path: "github.com/pierrec/lz4/v4", Version: "v4.1.15"},
		}
		Expect(moduleVersions(deps, studyModules)).To(Equal([]string{
			`github.com/pierrec/lz4/v4="v4.1.15"`,
			`gonum.org/v1/gonum="v0.11.0"`,
		}))
	})
})
