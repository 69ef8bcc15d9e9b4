// Copyright © 2024-2026 PEAKachu authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/alenzhao/PEAKachu/peakachu/library"
	"github.com/alenzhao/PEAKachu/peakachu/peakcall"
)

// RunInfo is persisted as run-info.toml in the output directory.
type RunInfo struct {
	Version  string    `toml:"version"`
	Approach string    `toml:"approach"`
	Date     time.Time `toml:"date"`
	Command  string    `toml:"command"`

	WindowSize int    `toml:"window-size,omitempty"`
	StepSize   int    `toml:"step-size,omitempty"`
	NormMethod string `toml:"norm-method"`

	Libraries []RunInfoLibrary `toml:"libraries"`

	Peaks int `toml:"peaks"`
}

// RunInfoLibrary describes one loaded library.
type RunInfoLibrary struct {
	Name    string  `toml:"name"`
	Type    string  `toml:"type"`
	Reads   int     `toml:"reads"`
	Factor  float64 `toml:"size-factor"`
	Paired  bool    `toml:"paired-end"`
	MaxSize int     `toml:"max-insert-size,omitempty"`
}

func writeRunInfo(file, approach string, cfg *peakcall.Config,
	libs []*library.Library, factors []float64, peaks int) error {

	info := RunInfo{
		Version:    VERSION,
		Approach:   approach,
		Date:       time.Now(),
		Command:    strings.Join(os.Args, " "),
		WindowSize: cfg.WindowSize,
		StepSize:   cfg.StepSize,
		NormMethod: string(cfg.NormMethod),
		Peaks:      peaks,
	}
	for i, lib := range libs {
		t := "experiment"
		if lib.Control {
			t = "control"
		}
		info.Libraries = append(info.Libraries, RunInfoLibrary{
			Name:    lib.Name,
			Type:    t,
			Reads:   lib.Total(),
			Factor:  factors[i],
			Paired:  lib.PairedEnd,
			MaxSize: lib.MaxInsertSize,
		})
	}

	data, err := toml.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "marshaling run info")
	}
	return os.WriteFile(file, data, 0644)
}
