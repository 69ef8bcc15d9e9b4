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
	"testing"

	"github.com/alenzhao/PEAKachu/peakachu/library"
)

func repeat(pos, n int) []int {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = pos
	}
	return positions
}

func TestMergeWindowsRun(t *testing.T) {
	exp := testLibrary("exp", false, "chr", library.Forward, repeat(10, 30))
	ctrl := testLibrary("ctrl", true, "chr", library.Forward, repeat(10, 2))
	libs := []*library.Library{exp, ctrl}

	cfg := DefaultConfig()
	tester := NewTester(&cfg, 1, 1)
	factors := []float64{1, 1}
	normTotals := []float64{10000, 10000}

	// windows of size 25, step 5 on a 60 nt replicon; the first three
	// are significant and overlap, so they merge into [0, 35)
	windows := GenerateWindows(60, 25, 5)
	for i := 0; i < 3; i++ {
		windows[i].Significant = true
	}

	peaks := MergeWindows(windows, libs, "chr", library.Forward, factors, normTotals, tester)
	if len(peaks) != 1 {
		t.Fatalf("got %d peaks, want 1", len(peaks))
	}
	p := peaks[0]
	if p.Start != 0 || p.End != 35 {
		t.Errorf("peak span [%d, %d), want [0, 35)", p.Start, p.End)
	}

	// statistics are recomputed over the merged span, not summed from
	// the overlapping windows
	if p.Counts[0] != 30 || p.Counts[1] != 2 {
		t.Errorf("recounted peak counts = %v, want [30 2]", p.Counts)
	}
	wantG, wantP := GTest2x2(30, 9970, 2, 9998)
	if p.G != wantG || p.PValue != wantP {
		t.Errorf("peak g/p = %v/%v, want recomputed %v/%v", p.G, p.PValue, wantG, wantP)
	}
}

// A non-significant window closes the current run even when later
// significant windows still overlap the span.
func TestMergeWindowsGap(t *testing.T) {
	exp := testLibrary("exp", false, "chr", library.Forward, repeat(20, 50))
	ctrl := testLibrary("ctrl", true, "chr", library.Forward, repeat(20, 2))
	libs := []*library.Library{exp, ctrl}

	cfg := DefaultConfig()
	tester := NewTester(&cfg, 1, 1)
	factors := []float64{1, 1}
	normTotals := []float64{10000, 10000}

	windows := GenerateWindows(60, 25, 5)
	windows[0].Significant = true
	windows[1].Significant = true
	// window 2 stays non-significant
	windows[3].Significant = true
	windows[4].Significant = true

	peaks := MergeWindows(windows, libs, "chr", library.Forward, factors, normTotals, tester)
	if len(peaks) != 2 {
		t.Fatalf("got %d peaks, want 2", len(peaks))
	}
	if peaks[0].Start != 0 || peaks[0].End != 30 {
		t.Errorf("first peak [%d, %d), want [0, 30)", peaks[0].Start, peaks[0].End)
	}
	if peaks[1].Start != 15 || peaks[1].End != 45 {
		t.Errorf("second peak [%d, %d), want [15, 45)", peaks[1].Start, peaks[1].End)
	}
}

func TestMergeWindowsSingleWindowPeak(t *testing.T) {
	exp := testLibrary("exp", false, "chr", library.Forward, repeat(12, 40))
	ctrl := testLibrary("ctrl", true, "chr", library.Forward, repeat(12, 3))
	libs := []*library.Library{exp, ctrl}

	cfg := DefaultConfig()
	tester := NewTester(&cfg, 1, 1)

	windows := GenerateWindows(100, 10, 10)
	windows[1].Significant = true // [10, 20)

	peaks := MergeWindows(windows, libs, "chr", library.Forward,
		[]float64{1, 1}, []float64{10000, 10000}, tester)
	if len(peaks) != 1 {
		t.Fatalf("got %d peaks, want 1", len(peaks))
	}
	if peaks[0].Start != 10 || peaks[0].End != 20 {
		t.Errorf("peak span [%d, %d), want [10, 20)", peaks[0].Start, peaks[0].End)
	}
}

// In replicate mode a merged span whose replicates disagree is dropped
// during the recomputation.
func TestMergeWindowsHeterogeneousSpanDropped(t *testing.T) {
	exp1 := testLibrary("exp1", false, "chr", library.Forward, repeat(10, 200))
	exp2 := testLibrary("exp2", false, "chr", library.Forward, repeat(10, 2))
	ctrl1 := testLibrary("ctrl1", true, "chr", library.Forward, repeat(10, 10))
	ctrl2 := testLibrary("ctrl2", true, "chr", library.Forward, repeat(10, 10))
	libs := []*library.Library{exp1, exp2, ctrl1, ctrl2}

	cfg := DefaultConfig()
	tester := NewTester(&cfg, 2, 2)

	windows := GenerateWindows(60, 25, 5)
	windows[0].Significant = true

	peaks := MergeWindows(windows, libs, "chr", library.Forward,
		[]float64{1, 1, 1, 1}, []float64{10000, 10000, 10000, 10000}, tester)
	if len(peaks) != 0 {
		t.Errorf("got %d peaks, want heterogeneous span dropped", len(peaks))
	}
}

func TestMergeWindowsNoSignificantWindows(t *testing.T) {
	exp := testLibrary("exp", false, "chr", library.Forward, repeat(10, 5))
	ctrl := testLibrary("ctrl", true, "chr", library.Forward, repeat(10, 5))

	cfg := DefaultConfig()
	tester := NewTester(&cfg, 1, 1)
	windows := GenerateWindows(60, 25, 5)

	peaks := MergeWindows(windows, []*library.Library{exp, ctrl}, "chr", library.Forward,
		[]float64{1, 1}, []float64{100, 100}, tester)
	if len(peaks) != 0 {
		t.Errorf("got %d peaks from all-insignificant windows", len(peaks))
	}
}
