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

package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/kraklabs/graphdex/pkg/counters"
)

// ProgressConfig determines if and how progress should be displayed.
type ProgressConfig struct {
	// Enabled indicates whether a progress spinner should be shown.
	// Disabled when --no-progress is passed or stderr is not a TTY.
	Enabled bool

	// Writer is where progress output goes (always os.Stderr).
	Writer io.Writer

	// NoColor disables colored output in the spinner.
	NoColor bool
}

// NewProgressConfig derives a ProgressConfig from CLI flags and TTY
// detection.
func NewProgressConfig(noProgress, noColor bool) ProgressConfig {
	return ProgressConfig{
		Enabled: !noProgress && isatty.IsTerminal(os.Stderr.Fd()),
		Writer:  os.Stderr,
		NoColor: noColor,
	}
}

// NewSpinner creates an indeterminate progress spinner describing
// pending/completed embedding counts. Returns nil if progress is
// disabled, so callers can safely check for nil before using it.
func NewSpinner(cfg ProgressConfig, description string) *progressbar.ProgressBar {
	if !cfg.Enabled {
		return nil
	}

	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(cfg.Writer),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(!cfg.NoColor),
	)
}

// watchAndWaitForEmbeddings repaints bar's description with the live
// pending/completed/total counts on a 100ms tick, the same interval the
// original's wait_for_embeddings polls at. walkDone must be closed once the
// ingest/update walk itself has returned; watchAndWaitForEmbeddings then
// keeps polling past that point until c.Done() (every enqueued chunk
// accepted, every accepted job finished) or ctx is cancelled, so callers
// never report final counts while embedding jobs are still in flight.
func watchAndWaitForEmbeddings(ctx context.Context, bar *progressbar.ProgressBar, c *counters.Counters, walkDone <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	walkFinished := false
	for {
		select {
		case <-ctx.Done():
			if bar != nil {
				_ = bar.Finish()
			}
			return
		case <-walkDone:
			walkFinished = true
			walkDone = nil
		case <-ticker.C:
			if bar != nil {
				_ = bar.Add(0)
				bar.Describe(describeCounters(c))
			}
			if walkFinished && c.Done() {
				if bar != nil {
					_ = bar.Finish()
				}
				return
			}
		}
	}
}

func describeCounters(c *counters.Counters) string {
	return "embedding chunks (" +
		itoa(c.Completed()) + "/" + itoa(c.Total()) +
		" completed, " + itoa(c.Pending()) + " in flight)"
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
