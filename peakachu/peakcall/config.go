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

// Package peakcall implements the sliding-window peak-calling engine:
// window generation, per-window read counting, cross-library
// normalization, G-test significance testing and merging of adjacent
// significant windows into peaks.
package peakcall

import (
	"github.com/pkg/errors"
)

// NormMethod selects how per-library scale factors are derived.
type NormMethod string

// Supported normalization methods.
const (
	NormTMM    NormMethod = "tmm"
	NormCount  NormMethod = "count"
	NormManual NormMethod = "manual"
	NormNone   NormMethod = "none"
)

// Config collects all parameters of a peak-calling run. It is treated
// as immutable once handed to the engine.
type Config struct {
	WindowSize int
	StepSize   int

	NormMethod  NormMethod
	SizeFactors []float64 // manual factors, experiment libraries first

	HetPValThreshold     float64
	RepPairPValThreshold float64
	PAdjThreshold        float64
	MadMultiplier        float64
	FcCutoff             float64

	// PairwiseReplicates restricts replicate pairings to index-aligned
	// (experiment_i, control_i) pairs.
	PairwiseReplicates bool

	MaxProc int

	Verbose bool
}

// DefaultConfig returns the default thresholds of the original tool.
func DefaultConfig() Config {
	return Config{
		WindowSize:           25,
		StepSize:             5,
		NormMethod:           NormTMM,
		HetPValThreshold:     0.01,
		RepPairPValThreshold: 0.05,
		PAdjThreshold:        0.05,
		MadMultiplier:        2.0,
		FcCutoff:             2.0,
		MaxProc:              1,
	}
}

// Validate checks the configuration against the given library counts.
// It is called before any window is generated so that configuration
// errors abort the run before expensive computation starts.
func (c *Config) Validate(nExp, nCtrl int) error {
	if c.WindowSize <= 0 {
		return errors.New("window size must be greater than 0")
	}
	if c.StepSize <= 0 {
		return errors.New("step size must be greater than 0")
	}
	if c.StepSize > c.WindowSize {
		return errors.Errorf(
			"step size (%d) must not exceed window size (%d), otherwise windows would skip genomic positions",
			c.StepSize, c.WindowSize)
	}

	switch c.NormMethod {
	case NormTMM, NormCount, NormNone:
	case NormManual:
		if len(c.SizeFactors) != nExp+nCtrl {
			return errors.Errorf(
				"number of manual size factors (%d) does not match number of libraries (%d)",
				len(c.SizeFactors), nExp+nCtrl)
		}
		for _, f := range c.SizeFactors {
			if f <= 0 {
				return errors.Errorf("manual size factors must be greater than 0, got %g", f)
			}
		}
	default:
		return errors.Errorf("unknown normalization method: %s", c.NormMethod)
	}

	if nExp == 0 {
		return errors.New("at least one experiment library is required")
	}
	if nCtrl == 0 {
		return errors.New("at least one control library is required")
	}
	if nExp > 1 || nCtrl > 1 {
		// replicate mode pairs experiment and control libraries
		if nExp != nCtrl {
			return errors.Errorf(
				"replicate mode requires equal numbers of experiment (%d) and control (%d) libraries",
				nExp, nCtrl)
		}
	}

	if c.FcCutoff < 0 {
		return errors.New("fold-change cutoff must not be negative")
	}
	for _, p := range []float64{c.HetPValThreshold, c.RepPairPValThreshold, c.PAdjThreshold} {
		if p < 0 || p > 1 {
			return errors.Errorf("p-value thresholds must be in [0, 1], got %g", p)
		}
	}
	if c.MaxProc <= 0 {
		return errors.New("number of worker processes must be greater than 0")
	}

	return nil
}

// ReplicateMode reports whether the run uses the replicate testing path.
func (c *Config) ReplicateMode(nExp int) bool {
	return nExp > 1
}
