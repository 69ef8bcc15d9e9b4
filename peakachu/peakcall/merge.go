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
	"github.com/alenzhao/PEAKachu/peakachu/library"
)

// Peak is a maximal run of merged significant windows with statistics
// recomputed over the merged span.
type Peak struct {
	Replicon string
	Strand   library.Strand
	Start    int
	End      int

	Counts     []float64
	NormCounts []float64

	G          float64
	PValue     float64
	PAdj       float64
	FoldChange float64
}

// MergeWindows scans the windows of one replicon/strand in coordinate
// order and merges runs of significant, adjacent or overlapping windows
// into peaks. A single significant window with no significant neighbor
// becomes a one-window peak. Peaks never bridge a non-significant
// window.
//
// Peak statistics are recomputed from scratch: reads are recounted over
// the full merged span (window counts overlap and are not additive) and
// the G-test and fold-change are rerun on the span as if it were one
// window. In replicate mode a merged span failing the heterogeneity
// gate is discarded.
func MergeWindows(windows []Window, libs []*library.Library,
	replicon string, strand library.Strand,
	factors, normTotals []float64, tester *Tester) []Peak {

	peaks := make([]Peak, 0, 16)

	var open bool
	var start, end int
	closePeak := func() {
		if !open {
			return
		}
		if p, ok := recompute(libs, replicon, strand, start, end, factors, normTotals, tester); ok {
			peaks = append(peaks, p)
		}
		open = false
	}

	for i := range windows {
		w := &windows[i]
		if !w.Significant {
			// even a single non-significant window breaks the run
			closePeak()
			continue
		}

		if open && w.Start <= end {
			if w.End > end {
				end = w.End
			}
			continue
		}

		closePeak()
		open = true
		start = w.Start
		end = w.End
	}
	closePeak()

	return peaks
}

func recompute(libs []*library.Library, replicon string, strand library.Strand,
	start, end int, factors, normTotals []float64, tester *Tester) (Peak, bool) {

	counts := CountRange(libs, replicon, strand, start, end)
	normCounts := normalizeCounts(counts, factors)

	res := tester.Test(normCounts, normTotals)
	if tester.Replicate() && !res.Tested {
		// heterogeneous merge
		return Peak{}, false
	}

	return Peak{
		Replicon:   replicon,
		Strand:     strand,
		Start:      start,
		End:        end,
		Counts:     counts,
		NormCounts: normCounts,
		G:          res.G,
		PValue:     res.PValue,
		FoldChange: res.FoldChange,
	}, true
}

func normalizeCounts(counts, factors []float64) []float64 {
	norm := make([]float64, len(counts))
	for i, c := range counts {
		norm[i] = c / factors[i]
	}
	return norm
}
