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
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/penny-vault/pv-eventstudy/common"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
	"github.com/rs/zerolog/log"
)

// Manifest is the provenance record of a single run
type Manifest struct {
	RunID     uuid.UUID `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
	Version   string    `json:"version"`

	Config ManifestConfig `json:"config"`

	// ReturnSource is the return that fed CAR and AAR; empty when the run stopped after the panel
	ReturnSource eventstudy.ReturnSource `json:"returnSource,omitempty"`
	ReturnColumn string                  `json:"returnColumn,omitempty"`

	// Inputs maps each input file name to the blake3 digest of its contents
	Inputs map[string]string `json:"inputs"`

	// Outputs lists the files written by the run
	Outputs []string `json:"outputs"`

	// PanelRunID is the run that built the event panel this run aggregated
	PanelRunID uuid.NullUUID `json:"panelRunId"`

	Stats ManifestStats `json:"stats"`
}

type ManifestConfig struct {
	Pre          int    `json:"pre"`
	Post         int    `json:"post"`
	CARWindows   []int  `json:"carWindows"`
	CodeWidth    int    `json:"codeWidth"`
	Workers      int    `json:"workers"`
	ReturnSource string `json:"returnSource"`
}

type ManifestStats struct {
	Events              int `json:"events"`
	Windowed            int `json:"windowed"`
	UnknownInstrument   int `json:"unknownInstrument"`
	NoTradingDay        int `json:"noTradingDay"`
	InsufficientHistory int `json:"insufficientHistory"`
	Skipped             int `json:"skipped"`
	PanelRows           int `json:"panelRows"`
	SummaryRows         int `json:"summaryRows"`
	Offsets             int `json:"offsets"`
}

// NewManifest starts a manifest for a run with cfg
func NewManifest(cfg eventstudy.Config) *Manifest {
	return &Manifest{
		RunID:     uuid.New(),
		CreatedAt: time.Now().UTC(),
		Version:   common.CurrentVersion.String(),
		Config: ManifestConfig{
			Pre:          cfg.Pre,
			Post:         cfg.Post,
			CARWindows:   append([]int(nil), cfg.CARWindows...),
			CodeWidth:    cfg.CodeWidth,
			Workers:      cfg.Workers,
			ReturnSource: string(cfg.ReturnSource),
		},
		Inputs:  make(map[string]string),
		Outputs: make([]string, 0, 5),
	}
}

// AddInput fingerprints fn and records it as an input of the run
func (m *Manifest) AddInput(fn string) error {
	digest, err := common.Fingerprint(fn)
	if err != nil {
		return err
	}
	m.Inputs[fn] = digest
	return nil
}

// AddOutput records fn as written by the run
func (m *Manifest) AddOutput(fn string) {
	m.Outputs = append(m.Outputs, fn)
}

// SetPanel records the panel assembly counts
func (m *Manifest) SetPanel(panel *eventstudy.Panel) {
	m.Stats.Events = panel.Stats.Events
	m.Stats.Windowed = panel.Stats.Windowed
	m.Stats.UnknownInstrument = panel.Stats.UnknownInstrument
	m.Stats.NoTradingDay = panel.Stats.NoTradingDay
	m.Stats.InsufficientHistory = panel.Stats.InsufficientHistory
	m.Stats.Skipped = panel.Stats.Skipped()
	m.Stats.PanelRows = panel.Len()
	m.ReturnColumn = panel.ReturnColumn
}

// LinkPanel records which run built the panel in fn, using prev, the manifest found next to it. The panel run is
// known when prev wrote fn, or when prev aggregated an identical fn and knew its origin. Returns false when the origin
// of fn cannot be established; fn must already be an input of m.
func (m *Manifest) LinkPanel(prev *Manifest, fn string) bool {
	for _, out := range prev.Outputs {
		if out == fn {
			m.PanelRunID = uuid.NullUUID{UUID: prev.RunID, Valid: true}
			return true
		}
	}

	digest, ok := prev.Inputs[fn]
	if ok && prev.PanelRunID.Valid && digest == m.Inputs[fn] {
		m.PanelRunID = prev.PanelRunID
		return true
	}
	return false
}

// SetResult records the aggregation outcome
func (m *Manifest) SetResult(res *eventstudy.Result) {
	m.ReturnSource = res.Source
	m.Stats.SummaryRows = len(res.Summary.Events)
	m.Stats.Offsets = res.AAR.Len()
}

// WriteManifest saves m as indented JSON to fn
func WriteManifest(fn string, m *Manifest) error {
	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
		return err
	}

	if err := os.WriteFile(fn, buf, 0644); err != nil {
		return err
	}

	log.Debug().Str("FileName", fn).Str("RunID", m.RunID.String()).Msg("wrote manifest")
	return nil
}

// ReadManifest loads a manifest written by WriteManifest
func ReadManifest(fn string) (*Manifest, error) {
	buf, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}

	m := &Manifest{}
	if err := json.Unmarshal(buf, m); err != nil {
		return nil, err
	}
	return m, nil
}
