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
	"fmt"
	"os"

	"github.com/penny-vault/pv-eventstudy/common"
	"github.com/penny-vault/pv-eventstudy/eventstudy"
	"github.com/penny-vault/pv-eventstudy/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var shutdownTracing = func(context.Context) error { return nil }

func bindString(key, env, flag, value, usage string) {
	viper.BindEnv(key, env)
	rootCmd.PersistentFlags().String(flag, value, usage)
	viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
}

func bindBool(key, env, flag string, value bool, usage string) {
	viper.BindEnv(key, env)
	rootCmd.PersistentFlags().Bool(flag, value, usage)
	viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
}

func bindInt(key, env, flag string, value int, usage string) {
	viper.BindEnv(key, env)
	rootCmd.PersistentFlags().Int(flag, value, usage)
	viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
}

func init() {
	defaults := eventstudy.DefaultConfig()

	// Inputs and outputs
	bindString("events.path", "PVES_EVENTS_PATH", "events", "data/processed/events_raw.csv", "Disclosure events CSV (may be .lz4 compressed)")
	bindString("prices.path", "PVES_PRICES_PATH", "prices", "data/processed/prices_daily.csv", "Daily prices CSV (may be .lz4 compressed)")
	bindString("panel.path", "PVES_PANEL_PATH", "panel", "", "Event panel CSV written by panel and read by summary (default: event_panel.csv in --output-dir)")
	bindString("output.dir", "PVES_OUTPUT_DIR", "output-dir", "data/processed", "Directory outputs are written to")
	bindBool("output.compress", "PVES_OUTPUT_COMPRESS", "compress", false, "Write lz4 compressed CSV outputs")
	bindBool("output.xlsx", "PVES_OUTPUT_XLSX", "xlsx", false, "Also write the aggregates to an xlsx workbook")
	bindBool("output.bom", "PVES_OUTPUT_BOM", "bom", false, "Prefix CSV outputs with a UTF-8 byte order mark")

	// Study
	bindInt("window.pre", "PVES_WINDOW_PRE", "pre", defaults.Pre, "Trading days before the anchor day")
	bindInt("window.post", "PVES_WINDOW_POST", "post", defaults.Post, "Trading days after the anchor day")
	viper.BindEnv("window.car", "PVES_WINDOW_CAR")
	rootCmd.PersistentFlags().IntSlice("car", defaults.CARWindows, "Half-widths w of the [-w, +w] CAR windows")
	viper.BindPFlag("window.car", rootCmd.PersistentFlags().Lookup("car"))
	bindInt("instrument.code_width", "PVES_CODE_WIDTH", "code-width", defaults.CodeWidth, "Zero padded width of stock codes")
	bindInt("panel.progress_every", "PVES_PROGRESS_EVERY", "progress-every", defaults.ProgressEvery, "Log panel progress every n events (0 disables)")
	bindInt("panel.workers", "PVES_WORKERS", "workers", defaults.Workers, "Number of events windowed concurrently")
	bindString("returns.source", "PVES_RETURN_SOURCE", "return-source", string(defaults.ReturnSource), "Return used for CAR and AAR: `auto`, external or window")
	bindString("returns.column", "PVES_RETURN_COLUMN", "return-column", "Change", "Name of the daily return column in the prices file")

	// Database
	bindString("database.url", "DATABASE_URL", "database-url", "", "PostgreSQL connection string; runs are only persisted when set")

	// Tracing
	bindString("otlp.endpoint", "OTLP_ENDPOINT", "otlp-endpoint", "", "OTLP/HTTP endpoint for traces; tracing is disabled when blank")

	// Logging configuration
	bindString("log.level", "PVES_LOG_LEVEL", "log-level", "info", "Logging level")
	bindBool("log.report_caller", "PVES_LOG_REPORT_CALLER", "log-report-caller", false, "Log function name that called log statement")
	bindString("log.output", "PVES_LOG_OUTPUT", "log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	bindBool("log.pretty", "PVES_LOG_PRETTY", "log-pretty", true, "Pretty print log messages")
}

var rootCmd = &cobra.Command{
	Use:          "pves",
	Version:      common.CurrentVersion.String(),
	SilenceUsage: true,
	Short:        "Event study of corporate disclosures",
	Long: `Align corporate disclosures to the trading calendar, cut fixed windows of daily prices around each
filing and aggregate the returns into per-event CARs and the cross-sectional AAR/CAAR series.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		common.SetupLogging()

		shutdown, err := opentelemetry.Setup(cmd.Context())
		if err != nil {
			log.Error().Err(err).Msg("could not setup tracing")
			return err
		}
		shutdownTracing = shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not flush traces")
		}
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
