// Copyright 2021-2026
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
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// commitHash and buildDate are set by mage through -ldflags
var (
	commitHash string
	buildDate  string
)

// modules whose versions can change study output; they are listed by "pves version"
var studyModules = []string{
	"github.com/jackc/pgx/v4",
	"github.com/pierrec/lz4/v4",
	"github.com/xuri/excelize/v2",
	"gonum.org/v1/gonum",
}

// Version is a SemVer 2.0.0 build version
type Version struct {
	Major int
	Minor int
	Patch int

	// Suffix marks a pre-release build and is empty for releases
	Suffix string
}

// String formats v as MAJOR.MINOR.PATCH; pre-release builds carry the suffix and, when known, the commit
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Suffix == "" {
		return s
	}

	s += "-" + v.Suffix
	if commitHash != "" {
		s += "+" + strings.ToLower(commitHash)
	}
	return s
}

// BuildVersionString is what "pves version" prints
func BuildVersionString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pves v%s %s/%s\n\n", CurrentVersion, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Build Date: %s\n", orUnknown(buildDate))
	fmt.Fprintf(&sb, "Commit: %s\n", orUnknown(commitHash))
	fmt.Fprintf(&sb, "Built with: %s\n", runtime.Version())

	if bi, ok := debug.ReadBuildInfo(); ok {
		if deps := moduleVersions(bi.Deps, studyModules); len(deps) > 0 {
			sb.WriteString("\nStudy libraries:\n\n")
			sb.WriteString(strings.Join(deps, "\n"))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// moduleVersions returns path="version" for every dep whose path is in paths, sorted by path
func moduleVersions(deps []*debug.Module, paths []string) []string {
	res := make([]string, 0, len(paths))
	for _, dep := range deps {
		for _, path := range paths {
			if dep.Path == path {
				res = append(res, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
			}
		}
	}
	sort.Strings(res)
	return res
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
