// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command graphdex walks a source tree, extracts syntax entities with
// Tree-sitter, embeds them through a hosted embedding API, and writes the
// resulting graph to a remote store over HTTP.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/kraklabs/graphdex/internal/config"
	"github.com/kraklabs/graphdex/internal/errors"
	"github.com/kraklabs/graphdex/internal/output"
	"github.com/kraklabs/graphdex/internal/ui"
	"github.com/kraklabs/graphdex/pkg/cascade"
	"github.com/kraklabs/graphdex/pkg/counters"
	"github.com/kraklabs/graphdex/pkg/dispatcher"
	"github.com/kraklabs/graphdex/pkg/embedclient"
	"github.com/kraklabs/graphdex/pkg/ingest"
	"github.com/kraklabs/graphdex/pkg/storeclient"
	"github.com/kraklabs/graphdex/pkg/syntax"
	"github.com/kraklabs/graphdex/pkg/update"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot determine current directory", err.Error(), "", err), false)
	}

	defaults, err := config.LoadProjectDefaults(cwd)
	if err != nil {
		errors.FatalError(errors.NewConfigError("cannot read "+config.ProjectFile, err.Error(), "Check the file is valid YAML", err), false)
	}

	pathDefault := "sample"
	if defaults.Path != "" {
		pathDefault = defaults.Path
	}
	portDefault := 6969
	if defaults.Port != 0 {
		portDefault = defaults.Port
	}

	path := pflag.String("path", pathDefault, "Path to the directory to index")
	port := pflag.Int("port", portDefault, "Store port (http://localhost:{port})")
	updateInterval := pflag.Duration("update-interval", time.Hour, "Minimum age before a file is considered stale during update")
	metricsAddr := pflag.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	noColor := pflag.Bool("no-color", false, "Disable colored output")
	noProgress := pflag.Bool("no-progress", false, "Disable the progress spinner")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	jsonOutput := pflag.Bool("json", false, "Print ingest/update results as JSON instead of colored text")
	pflag.Parse()

	ui.InitColors(*noColor)

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	indexTypes, err := config.LoadIndexTypes(cwd)
	if err != nil {
		errors.FatalError(errors.NewConfigError("cannot load "+config.IndexTypesFile, err.Error(), "Check "+config.IndexTypesFile+" exists and is valid JSON", err), false)
	}
	fileTypes, err := config.LoadFileTypes(cwd)
	if err != nil {
		errors.FatalError(errors.NewConfigError("cannot load "+config.FileTypesFile, err.Error(), "Check "+config.FileTypesFile+" exists and is valid JSON", err), false)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	store := storeclient.New(*port)
	embed := embedclient.New()
	c := counters.New()
	disp := dispatcher.New(embed, store, c, logger)
	registry := syntax.NewRegistry()

	ingestEngine := ingest.New(store, disp, registry, indexTypes, fileTypes, logger)
	deleter := cascade.New(store, logger)
	updateEngine := update.New(store, ingestEngine, deleter, *updateInterval, logger)

	progressCfg := NewProgressConfig(*noProgress, *noColor)

	runMenu(ctx, logger, progressCfg, *path, *jsonOutput, disp, c, ingestEngine, updateEngine)
}

// ingestResult is the --json-mode summary of one ingest run.
type ingestResult struct {
	RootID         string `json:"root_id"`
	Path           string `json:"path"`
	TotalChunks    int64  `json:"total_chunks"`
	CompletedChunk int64  `json:"completed_chunks"`
}

// updateResult is the --json-mode summary of one update run.
type updateResult struct {
	RootID string `json:"root_id"`
	Path   string `json:"path"`
	OK     bool   `json:"ok"`
}

// runMenu drives the interactive CLI menu (§6): 1 ingest, 2 update
// (requires a root_id established earlier in this session), 3 exit.
func runMenu(ctx context.Context, logger *slog.Logger, progressCfg ProgressConfig, path string, jsonOutput bool, disp *dispatcher.Dispatcher, c *counters.Counters, ingestEngine *ingest.Engine, updateEngine *update.Engine) {
	dispDone := make(chan struct{})
	go func() {
		disp.Run(ctx)
		close(dispDone)
	}()
	defer func() {
		disp.Close()
		<-dispDone
	}()

	reader := bufio.NewReader(os.Stdin)
	var rootID string

	for {
		if ctx.Err() != nil {
			return
		}

		fmt.Println()
		ui.Header("graphdex")
		fmt.Println("1) ingest")
		fmt.Println("2) update" + currentRootSuffix(rootID))
		fmt.Println("3) exit")
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		switch strings.TrimSpace(line) {
		case "1":
			rootID = runIngest(ctx, logger, progressCfg, path, jsonOutput, ingestEngine, c)
		case "2":
			runUpdate(ctx, logger, progressCfg, path, rootID, jsonOutput, updateEngine, c)
		case "3":
			ui.Info("Shutting down")
			return
		default:
			ui.Warning("Choose 1, 2, or 3")
		}
	}
}

func currentRootSuffix(rootID string) string {
	if rootID == "" {
		return " (no root indexed yet this session)"
	}
	return ""
}

func runIngest(ctx context.Context, logger *slog.Logger, progressCfg ProgressConfig, path string, jsonOutput bool, ingestEngine *ingest.Engine, c *counters.Counters) string {
	bar := NewSpinner(progressCfg, "ingesting "+path)
	walkDone := make(chan struct{})
	waitDone := make(chan struct{})
	go func() {
		watchAndWaitForEmbeddings(ctx, bar, c, walkDone)
		close(waitDone)
	}()

	rootID, err := ingestEngine.Ingest(ctx, path)
	close(walkDone)
	<-waitDone

	if err != nil {
		if jsonOutput {
			_ = output.JSONError(err)
		} else {
			ui.Errorf("Ingest failed: %v", err)
		}
		logger.Error("cli.ingest.error", "path", path, "err", err)
		c.Reset()
		return ""
	}

	if jsonOutput {
		_ = output.JSON(ingestResult{RootID: rootID, Path: path, TotalChunks: c.Total(), CompletedChunk: c.Completed()})
	} else {
		ui.Successf("Indexed %s as root %s (%d chunks, %d completed)", path, rootID, c.Total(), c.Completed())
	}
	c.Reset()
	return rootID
}

func runUpdate(ctx context.Context, logger *slog.Logger, progressCfg ProgressConfig, path, rootID string, jsonOutput bool, updateEngine *update.Engine, c *counters.Counters) {
	if rootID == "" {
		ui.Warning("Run ingest first in this session before update")
		return
	}

	bar := NewSpinner(progressCfg, "updating "+path)
	walkDone := make(chan struct{})
	waitDone := make(chan struct{})
	go func() {
		watchAndWaitForEmbeddings(ctx, bar, c, walkDone)
		close(waitDone)
	}()

	err := updateEngine.Update(ctx, path, rootID)
	close(walkDone)
	<-waitDone

	if err != nil {
		if jsonOutput {
			_ = output.JSONError(err)
		} else {
			ui.Errorf("Update failed: %v", err)
		}
		logger.Error("cli.update.error", "path", path, "root_id", rootID, "err", err)
		c.Reset()
		return
	}

	if jsonOutput {
		_ = output.JSON(updateResult{RootID: rootID, Path: path, OK: true})
	} else {
		ui.Success("Update complete")
	}
	c.Reset()
}
