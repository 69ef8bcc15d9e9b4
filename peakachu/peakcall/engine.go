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

package peakcall

import (
	"math"
	"os"
	"sort"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/alenzhao/PEAKachu/peakachu/library"
)

// WindowTrack holds the windows of one replicon/strand.
type WindowTrack struct {
	Replicon string
	Length   int
	Strand   library.Strand
	Windows  []Window
}

// Result of a peak-calling run. Tracks and Peaks are ordered by
// replicon input order, then strand (+ before -), then coordinate,
// independent of worker completion order.
type Result struct {
	Libraries []*library.Library // experiment libraries first
	NExp      int

	WindowSize int
	StepSize   int

	Factors []float64

	Tracks []WindowTrack
	Peaks  []Peak

	TestedWindows int
}

// CallPeaks runs the full sliding-window pipeline: window generation
// and counting per replicon/strand (in parallel), genome-wide
// normalization, significance testing, Benjamini-Hochberg correction
// over all tested windows, and merging of significant windows into
// peaks with recomputed statistics.
func CallPeaks(cfg *Config, repls []library.Replicon,
	exp, ctrl []*library.Library) (*Result, error) {

	if err := cfg.Validate(len(exp), len(ctrl)); err != nil {
		return nil, err
	}

	libs := make([]*library.Library, 0, len(exp)+len(ctrl))
	libs = append(libs, exp...)
	libs = append(libs, ctrl...)
	nExp := len(exp)
	nLibs := len(libs)

	tracks := make([]WindowTrack, 0, 2*len(repls))
	for _, repl := range repls {
		for _, strand := range library.Strands {
			tracks = append(tracks, WindowTrack{
				Replicon: repl.Name,
				Length:   repl.Length,
				Strand:   strand,
			})
		}
	}

	// stage 1: windows and raw counts, one task per replicon/strand
	forEachTrack(cfg, tracks, "counting windows", func(t *WindowTrack) {
		t.Windows = GenerateWindows(t.Length, cfg.WindowSize, cfg.StepSize)
		CountWindows(t.Windows, libs, t.Replicon, t.Strand, cfg.WindowSize, cfg.StepSize)
	})

	// normalization factors need the genome-wide count matrix
	matrix := make([][]float64, nLibs)
	var nWindows int
	for _, t := range tracks {
		nWindows += len(t.Windows)
	}
	for li := range matrix {
		matrix[li] = make([]float64, 0, nWindows)
	}
	for _, t := range tracks {
		for i := range t.Windows {
			for li, c := range t.Windows[i].Counts {
				matrix[li] = append(matrix[li], c)
			}
		}
	}

	factors, err := Factors(cfg.NormMethod, cfg.SizeFactors, matrix)
	if err != nil {
		return nil, err
	}

	normTotals := make([]float64, nLibs)
	for li, lib := range libs {
		normTotals[li] = float64(lib.Total()) / factors[li]
	}

	for ti := range tracks {
		for i := range tracks[ti].Windows {
			w := &tracks[ti].Windows[i]
			w.NormCounts = normalizeCounts(w.Counts, factors)
		}
	}

	cutoff := madCutoff(tracks, nExp, cfg.MadMultiplier)

	// stage 2: per-window significance testing
	tester := NewTester(cfg, nExp, len(ctrl))
	forEachTrack(cfg, tracks, "testing windows", func(t *WindowTrack) {
		for i := range t.Windows {
			w := &t.Windows[i]
			w.PValue = 1
			w.PAdj = 1
			w.FoldChange = 1
			if maxExperimentCount(w.NormCounts, nExp) <= cutoff {
				continue
			}
			res := tester.Test(w.NormCounts, normTotals)
			w.G = res.G
			w.PValue = res.PValue
			w.FoldChange = res.FoldChange
			w.Tested = res.Tested
		}
	})

	// barrier: the p-value adjustment is computed over the pooled set
	// of all tested windows from all replicons/strands
	var tested int
	pvals := make([]float64, 0, nWindows)
	for ti := range tracks {
		for i := range tracks[ti].Windows {
			if tracks[ti].Windows[i].Tested {
				pvals = append(pvals, tracks[ti].Windows[i].PValue)
			}
		}
	}
	tested = len(pvals)
	padj := AdjustBH(pvals)

	var k int
	for ti := range tracks {
		for i := range tracks[ti].Windows {
			w := &tracks[ti].Windows[i]
			if !w.Tested {
				continue
			}
			w.PAdj = padj[k]
			k++
			w.Significant = tester.Significant(TestResult{
				G:          w.G,
				PValue:     w.PValue,
				FoldChange: w.FoldChange,
				Tested:     w.Tested,
			}, w.PAdj)
		}
	}

	// stage 3: merge significant windows into peaks
	trackPeaks := make([][]Peak, len(tracks))
	forEachTrackIndexed(cfg, tracks, "merging peaks", func(ti int, t *WindowTrack) {
		trackPeaks[ti] = MergeWindows(t.Windows, libs, t.Replicon, t.Strand,
			factors, normTotals, tester)
	})

	peaks := make([]Peak, 0, 64)
	for _, ps := range trackPeaks {
		peaks = append(peaks, ps...)
	}

	// peak p-values are re-derived, so their adjustment forms a new family
	if len(peaks) > 0 {
		peakPvals := make([]float64, len(peaks))
		for i := range peaks {
			peakPvals[i] = peaks[i].PValue
		}
		peakPadj := AdjustBH(peakPvals)
		for i := range peaks {
			peaks[i].PAdj = peakPadj[i]
		}
	}

	return &Result{
		Libraries:     libs,
		NExp:          nExp,
		WindowSize:    cfg.WindowSize,
		StepSize:      cfg.StepSize,
		Factors:       factors,
		Tracks:        tracks,
		Peaks:         peaks,
		TestedWindows: tested,
	}, nil
}

func maxExperimentCount(normCounts []float64, nExp int) float64 {
	var max float64
	for _, c := range normCounts[:nExp] {
		if c > max {
			max = c
		}
	}
	return max
}

// madCutoff derives the expression prefilter threshold
// median + multiplier*MAD from the non-zero per-window experiment
// maxima. A degenerate MAD of 0 disables the filter.
func madCutoff(tracks []WindowTrack, nExp int, multiplier float64) float64 {
	values := make([]float64, 0, 1024)
	for ti := range tracks {
		for i := range tracks[ti].Windows {
			if v := maxExperimentCount(tracks[ti].Windows[i].NormCounts, nExp); v > 0 {
				values = append(values, v)
			}
		}
	}
	if len(values) == 0 {
		return 0
	}

	sort.Float64s(values)
	med := median(values)

	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - med)
	}
	sort.Float64s(dev)
	mad := median(dev)
	if mad == 0 {
		return 0
	}

	return med + multiplier*mad
}

// median of a sorted slice
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func forEachTrack(cfg *Config, tracks []WindowTrack, name string, fn func(*WindowTrack)) {
	forEachTrackIndexed(cfg, tracks, name, func(_ int, t *WindowTrack) {
		fn(t)
	})
}

// forEachTrackIndexed processes the replicon/strand tracks with a
// bounded worker pool. Workers share only read-only library data, and
// results are written to per-task slots, so no locking is needed.
func forEachTrackIndexed(cfg *Config, tracks []WindowTrack, name string, fn func(int, *WindowTrack)) {
	var pbs *mpb.Progress
	var bar *mpb.Bar
	if cfg.Verbose {
		pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		bar = pbs.AddBar(int64(len(tracks)),
			mpb.PrependDecorators(
				decor.Name(name+": ", decor.WC{W: len(name) + 2, C: decor.DindentRight}),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
	}

	tokens := make(chan int, cfg.MaxProc)
	var wg sync.WaitGroup
	for ti := range tracks {
		tokens <- 1
		wg.Add(1)
		go func(ti int) {
			defer func() {
				<-tokens
				wg.Done()
			}()
			fn(ti, &tracks[ti])
			if bar != nil {
				bar.Increment()
			}
		}(ti)
	}
	wg.Wait()

	if cfg.Verbose {
		pbs.Wait()
	}
}
