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

// CountWindows fills the raw count vectors of windows on one
// replicon/strand for all libraries (experiment libraries first,
// library order fixed across the whole run).
//
// Windows form a regular grid (start = i*step, width <= size), so each
// read position p maps directly to the window indices i with
// i*step <= p < i*step+size. With the grid known, counting runs in
// O(reads * (size/step) + windows), never in O(reads * windows).
func CountWindows(windows []Window, libs []*library.Library,
	replicon string, strand library.Strand, size, step int) {

	nLibs := len(libs)
	for i := range windows {
		windows[i].Counts = make([]float64, nLibs)
	}
	if len(windows) == 0 {
		return
	}

	for li, lib := range libs {
		for _, p := range lib.Positions(replicon, strand) {
			// first grid start covering p: the smallest i with i*step > p-size
			lo := 0
			if p >= size {
				lo = (p-size)/step + 1
			}
			hi := p / step // last grid start <= p
			if hi >= len(windows) {
				hi = len(windows) - 1
			}
			for i := lo; i <= hi; i++ {
				windows[i].Counts[li]++
			}
		}
	}
}

// CountRange returns the raw count vector of one interval across all
// libraries, used when recomputing statistics of merged peaks and for
// scoring predefined peak intervals.
func CountRange(libs []*library.Library, replicon string, strand library.Strand,
	start, end int) []float64 {

	counts := make([]float64, len(libs))
	for li, lib := range libs {
		counts[li] = float64(lib.CountRange(replicon, strand, start, end))
	}
	return counts
}
