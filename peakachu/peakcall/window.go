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

// Window is a half-open genomic interval [Start, End) on one strand of
// one replicon, with the statistics accumulated by the pipeline stages.
type Window struct {
	Start int
	End   int

	Counts     []float64 // raw count per library, experiment first
	NormCounts []float64

	G          float64
	PValue     float64
	PAdj       float64
	FoldChange float64

	// Tested is false for windows skipped by the expression prefilter
	// or excluded by the replicate heterogeneity gate.
	Tested      bool
	Significant bool
}

// GenerateWindows returns the ordered windows covering [0, length) with
// starts at 0, step, 2*step, ... . The last window is clipped at the
// replicon end so that no position beyond length is referenced. The
// result is a pure function of (length, size, step).
func GenerateWindows(length, size, step int) []Window {
	if length <= 0 {
		return nil
	}

	n := (length + step - 1) / step
	windows := make([]Window, 0, n)
	for start := 0; start < length; start += step {
		end := start + size
		if end > length {
			end = length
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows
}
