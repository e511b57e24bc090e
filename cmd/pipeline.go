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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/penny-vault/pv-eventstudy/database"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
	"github.com/penny-vault/pv-eventstudy/report"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// runPanel builds the event panel and saves it with the run manifest
func runPanel(ctx context.Context) error {
	cfg, err := configFromViper()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	manifest := report.NewManifest(cfg)
	panel, err := buildPanel(ctx, cfg, manifest)
	if err != nil {
		log.Error().Err(err).Msg("could not build event panel")
		return err
	}

	if err := writeManifest(manifest); err != nil {
		log.Error().Err(err).Msg("could not save run manifest")
		return err
	}

	printPanel(panel)
	return nil
}

// runSummary aggregates the panel saved by runPanel
func runSummary(ctx context.Context) error {
	cfg, err := configFromViper()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	manifest := report.NewManifest(cfg)
	panel, err := loadPanel(cfg, manifest)
	if err != nil {
		log.Error().Err(err).Msg("could not load event panel")
		return err
	}

	return finish(ctx, cfg, panel, manifest)
}

// runStudy builds the event panel and aggregates it without reading the panel back
func runStudy(ctx context.Context) error {
	cfg, err := configFromViper()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	manifest := report.NewManifest(cfg)
	panel, err := buildPanel(ctx, cfg, manifest)
	if err != nil {
		log.Error().Err(err).Msg("could not build event panel")
		return err
	}
	printPanel(panel)

	return finish(ctx, cfg, panel, manifest)
}

func finish(ctx context.Context, cfg eventstudy.Config, panel *eventstudy.Panel, manifest *report.Manifest) error {
	res, err := summarize(ctx, cfg, panel, manifest)
	if err != nil {
		log.Error().Err(err).Msg("could not aggregate event panel")
		return err
	}

	if err := persist(ctx, cfg, manifest, panel, res); err != nil {
		log.Error().Err(err).Msg("could not save run to database")
		return err
	}

	if err := writeManifest(manifest); err != nil {
		log.Error().Err(err).Msg("could not save run manifest")
		return err
	}

	printResult(res)
	return nil
}

// panelPath returns panel.path when it is set and otherwise the panel file in output.dir
func panelPath() string {
	if fn := viper.GetString("panel.path"); fn != "" {
		return fn
	}
	return outputOptions().Path(viper.GetString("output.dir"), report.PanelFile)
}

// buildPanel loads the inputs, assembles the event panel and saves it to panelPath. An empty panel is not saved and
// any panel left by an earlier run is removed.
func buildPanel(ctx context.Context, cfg eventstudy.Config, manifest *report.Manifest) (*eventstudy.Panel, error) {
	events, prices, err := loadInputs(ctx, cfg)
	if err != nil {
		return nil, err
	}

	for _, fn := range []string{viper.GetString("events.path"), viper.GetString("prices.path")} {
		if err := manifest.AddInput(fn); err != nil {
			return nil, err
		}
	}

	panel, err := eventstudy.BuildPanel(ctx, events, prices, cfg)
	if err != nil {
		return nil, err
	}
	manifest.SetPanel(panel)

	fn := panelPath()
	if panel.Len() == 0 {
		log.Warn().Int("NumEvents", len(events)).Int("Skipped", panel.Stats.Skipped()).Msg("panel is empty")
		if err := os.Remove(fn); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return panel, nil
	}

	if err := report.WritePanel(fn, panel, outputOptions()); err != nil {
		return nil, err
	}
	manifest.AddOutput(fn)

	log.Info().Str("FileName", fn).Int("NumRows", panel.Len()).Msg("saved event panel")
	return panel, nil
}

// loadPanel reads a panel previously saved by buildPanel and links it to the run that built it when the manifest in
// output.dir identifies that run
func loadPanel(cfg eventstudy.Config, manifest *report.Manifest) (*eventstudy.Panel, error) {
	fn := panelPath()
	panel, err := report.ReadPanel(fn, cfg.CodeWidth, viper.GetString("returns.column"))
	if err != nil {
		return nil, err
	}

	if err := manifest.AddInput(fn); err != nil {
		return nil, err
	}
	manifest.SetPanel(panel)

	manifestFn := filepath.Join(viper.GetString("output.dir"), report.ManifestFile)
	prev, err := report.ReadManifest(manifestFn)
	if err != nil {
		log.Debug().Err(err).Str("FileName", manifestFn).Msg("no previous manifest")
		return panel, nil
	}

	if !manifest.LinkPanel(prev, fn) {
		log.Warn().Str("FileName", fn).Str("Manifest", manifestFn).Msg("event panel was not built by the run recorded in the manifest")
		return panel, nil
	}

	log.Info().Str("FileName", fn).Str("PanelRunID", manifest.PanelRunID.UUID.String()).Msg("loaded event panel")
	return panel, nil
}

// summarize aggregates the panel and saves the event summary and the AAR/CAAR series
func summarize(ctx context.Context, cfg eventstudy.Config, panel *eventstudy.Panel, manifest *report.Manifest) (*eventstudy.Result, error) {
	res, err := eventstudy.Aggregate(ctx, panel, cfg)
	if err != nil {
		return nil, err
	}
	manifest.SetResult(res)

	opts := outputOptions()
	dir := viper.GetString("output.dir")

	summaryFn := opts.Path(dir, report.SummaryFile)
	if err := report.WriteSummary(summaryFn, res.Summary, opts); err != nil {
		return nil, err
	}
	manifest.AddOutput(summaryFn)
	log.Info().Str("FileName", summaryFn).Int("NumRows", len(res.Summary.Events)).Msg("saved event summary")

	caarFn := opts.Path(dir, report.CAARFile)
	if err := report.WriteCAAR(caarFn, res.AAR, opts); err != nil {
		return nil, err
	}
	manifest.AddOutput(caarFn)
	log.Info().Str("FileName", caarFn).Int("NumRows", res.AAR.Len()).Msg("saved AAR/CAAR series")

	if viper.GetBool("output.xlsx") {
		workbookFn := filepath.Join(dir, report.WorkbookFile)
		if err := report.WriteWorkbook(workbookFn, res); err != nil {
			return nil, err
		}
		manifest.AddOutput(workbookFn)
	}

	return res, nil
}

// persist saves the run to the database when database.url is configured
func persist(ctx context.Context, cfg eventstudy.Config, manifest *report.Manifest, panel *eventstudy.Panel, res *eventstudy.Result) error {
	if !database.Enabled() {
		return nil
	}

	if err := database.Connect(ctx); err != nil {
		return err
	}
	defer database.LogOpenTransactions()

	if err := database.Migrate(ctx); err != nil {
		return err
	}

	run := &database.Run{
		ID:        manifest.RunID,
		CreatedAt: manifest.CreatedAt,
		Version:   manifest.Version,
		Config:    cfg,
		Stats:     panel.Stats,
		Result:    res,
	}
	if err := database.SaveRun(ctx, run); err != nil {
		return err
	}

	if _, err := database.SavePanel(ctx, run.ID, panel); err != nil {
		return err
	}
	return nil
}

func writeManifest(manifest *report.Manifest) error {
	fn := filepath.Join(viper.GetString("output.dir"), report.ManifestFile)
	if err := report.WriteManifest(fn, manifest); err != nil {
		return err
	}
	log.Info().Str("FileName", fn).Str("RunID", manifest.RunID.String()).Msg("saved run manifest")
	return nil
}

func printPanel(panel *eventstudy.Panel) {
	fmt.Printf("events=%d windowed=%d skipped=%d (unknown_instrument=%d no_trading_day=%d insufficient_history=%d) rows=%d\n",
		panel.Stats.Events, panel.Stats.Windowed, panel.Stats.Skipped(), panel.Stats.UnknownInstrument,
		panel.Stats.NoTradingDay, panel.Stats.InsufficientHistory, panel.Len())
	fmt.Println(panelHead(panel, sanityRows))
}

func printResult(res *eventstudy.Result) {
	fmt.Printf("return source: %s\n", res.Source)
	fmt.Println(summaryHead(res.Summary, sanityRows))
	fmt.Println(caarHead(res.AAR, sanityRows))
}
