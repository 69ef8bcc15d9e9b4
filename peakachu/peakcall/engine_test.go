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
	"reflect"
	"testing"

	"github.com/alenzhao/PEAKachu/peakachu/library"
)

// enrichedLibraries builds one experiment and one control library with a
// flat background of one read per tiling window plus a strong experiment
// cluster in [50, 60) of chr1.
func enrichedLibraries() (exp, ctrl *library.Library) {
	exp = library.New("exp", false)
	ctrl = library.New("ctrl", true)
	for p := 5; p < 200; p += 10 {
		exp.Add("chr1", library.Forward, p)
		ctrl.Add("chr1", library.Forward, p)
	}
	for i := 0; i < 60; i++ {
		exp.Add("chr1", library.Forward, 55)
	}
	exp.Finalize()
	ctrl.Finalize()
	return exp, ctrl
}

func TestCallPeaksSingleEnrichedRegion(t *testing.T) {
	exp, ctrl := enrichedLibraries()
	repls := []library.Replicon{{Name: "chr1", Length: 200}}

	cfg := DefaultConfig()
	cfg.WindowSize = 10
	cfg.StepSize = 10
	cfg.NormMethod = NormNone

	res, err := CallPeaks(&cfg, repls,
		[]*library.Library{exp}, []*library.Library{ctrl})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Tracks) != 2 {
		t.Fatalf("got %d tracks, want forward and reverse of chr1", len(res.Tracks))
	}
	if res.TestedWindows == 0 {
		t.Fatal("no windows tested")
	}

	if len(res.Peaks) != 1 {
		t.Fatalf("got %d peaks, want exactly the enriched region: %+v", len(res.Peaks), res.Peaks)
	}
	p := res.Peaks[0]
	if p.Replicon != "chr1" || p.Strand != library.Forward {
		t.Errorf("peak on %s/%c, want chr1/+", p.Replicon, p.Strand)
	}
	if p.Start != 50 || p.End != 60 {
		t.Errorf("peak span [%d, %d), want [50, 60)", p.Start, p.End)
	}
	if p.Counts[0] != 61 || p.Counts[1] != 1 {
		t.Errorf("peak counts = %v, want [61 1]", p.Counts)
	}
	if p.PAdj > cfg.PAdjThreshold {
		t.Errorf("peak padj = %v, above the calling threshold", p.PAdj)
	}
	if p.FoldChange < cfg.FcCutoff {
		t.Errorf("peak fold change = %v, below the cutoff", p.FoldChange)
	}
}

func TestCallPeaksValidatesConfig(t *testing.T) {
	exp, ctrl := enrichedLibraries()
	repls := []library.Replicon{{Name: "chr1", Length: 200}}

	cfg := DefaultConfig()
	cfg.StepSize = cfg.WindowSize + 1
	if _, err := CallPeaks(&cfg, repls,
		[]*library.Library{exp}, []*library.Library{ctrl}); err == nil {
		t.Error("invalid configuration not rejected before processing")
	}
}

// Results must not depend on worker scheduling: two runs with several
// workers over several replicons and strands agree exactly.
func TestCallPeaksDeterministic(t *testing.T) {
	mkLibs := func() (*library.Library, *library.Library) {
		exp := library.New("exp", false)
		ctrl := library.New("ctrl", true)
		// deterministic pseudo-random positions
		state := 1
		next := func(n int) int {
			state = (state*48271 + 11) % 2147483647
			return state % n
		}
		for _, repl := range []string{"chr1", "chr2", "chr3"} {
			for _, strand := range library.Strands {
				for i := 0; i < 400; i++ {
					exp.Add(repl, strand, next(5000))
					ctrl.Add(repl, strand, next(5000))
				}
				// a cluster per replicon/strand
				for i := 0; i < 80; i++ {
					exp.Add(repl, strand, 1000+next(10))
				}
			}
		}
		exp.Finalize()
		ctrl.Finalize()
		return exp, ctrl
	}

	repls := []library.Replicon{
		{Name: "chr1", Length: 5000},
		{Name: "chr2", Length: 5000},
		{Name: "chr3", Length: 5000},
	}

	run := func() *Result {
		cfg := DefaultConfig()
		cfg.NormMethod = NormCount
		cfg.MaxProc = 4
		exp, ctrl := mkLibs()
		res, err := CallPeaks(&cfg, repls,
			[]*library.Library{exp}, []*library.Library{ctrl})
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	a, b := run(), run()

	if !reflect.DeepEqual(a.Factors, b.Factors) {
		t.Errorf("factors differ between runs: %v vs %v", a.Factors, b.Factors)
	}
	if !reflect.DeepEqual(a.Peaks, b.Peaks) {
		t.Error("peaks differ between runs")
	}
	if len(a.Tracks) != len(b.Tracks) {
		t.Fatal("track layouts differ between runs")
	}
	for ti := range a.Tracks {
		if !reflect.DeepEqual(a.Tracks[ti], b.Tracks[ti]) {
			t.Errorf("track %s/%c differs between runs",
				a.Tracks[ti].Replicon, a.Tracks[ti].Strand)
		}
	}

	// track order follows replicon input order and strand, not worker
	// completion order
	wantOrder := []string{"chr1", "chr1", "chr2", "chr2", "chr3", "chr3"}
	for ti, track := range a.Tracks {
		if track.Replicon != wantOrder[ti] {
			t.Fatalf("track %d on %s, want %s", ti, track.Replicon, wantOrder[ti])
		}
		wantStrand := library.Strands[ti%2]
		if track.Strand != wantStrand {
			t.Fatalf("track %d on strand %c, want %c", ti, track.Strand, wantStrand)
		}
	}
}

func TestCallPeaksShortReplicon(t *testing.T) {
	exp := testLibrary("exp", false, "tiny", library.Forward, []int{0, 1, 2})
	ctrl := testLibrary("ctrl", true, "tiny", library.Forward, []int{1})

	cfg := DefaultConfig()
	cfg.NormMethod = NormNone

	res, err := CallPeaks(&cfg, []library.Replicon{{Name: "tiny", Length: 3}},
		[]*library.Library{exp}, []*library.Library{ctrl})
	if err != nil {
		t.Fatal(err)
	}
	for _, track := range res.Tracks {
		if len(track.Windows) != 1 {
			t.Fatalf("short replicon has %d windows, want a single clipped one", len(track.Windows))
		}
		w := track.Windows[0]
		if w.Start != 0 || w.End != 3 {
			t.Errorf("window [%d, %d), want clipped [0, 3)", w.Start, w.End)
		}
	}
}

func TestMadCutoff(t *testing.T) {
	mk := func(maxima []float64) []WindowTrack {
		windows := make([]Window, len(maxima))
		for i, v := range maxima {
			windows[i].NormCounts = []float64{v, 0}
		}
		return []WindowTrack{{Replicon: "chr", Strand: library.Forward, Windows: windows}}
	}

	// sorted non-zero maxima 1..5: median 3, deviations {0 1 1 2 2},
	// MAD 1, cutoff 3 + 2*1
	got := madCutoff(mk([]float64{5, 1, 3, 0, 2, 4}), 1, 2.0)
	if got != 5.0 {
		t.Errorf("cutoff = %v, want 5.0", got)
	}

	// identical maxima: MAD 0 disables the filter
	if got := madCutoff(mk([]float64{2, 2, 2}), 1, 2.0); got != 0 {
		t.Errorf("cutoff = %v, want 0 for zero MAD", got)
	}

	// no covered windows at all
	if got := madCutoff(mk([]float64{0, 0}), 1, 2.0); got != 0 {
		t.Errorf("cutoff = %v, want 0 without coverage", got)
	}
}
