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

// Tester scores count vectors of windows and peaks. The testing path
// (single-replicate or replicate mode) is selected once per run by the
// number of replicate libraries.
type Tester struct {
	cfg   *Config
	nExp  int
	nCtrl int

	replicate bool
	pairs     [][2]int // pairings as (experiment index, control index)
}

// TestResult is the outcome of scoring one count vector.
type TestResult struct {
	G          float64
	PValue     float64
	FoldChange float64

	// Tested is false when the replicate heterogeneity gate excluded
	// the interval from calling.
	Tested bool
}

// NewTester builds the tester for a run with the given library layout.
// Count vectors passed to Test must hold nExp experiment libraries
// followed by nCtrl control libraries.
func NewTester(cfg *Config, nExp, nCtrl int) *Tester {
	t := &Tester{
		cfg:       cfg,
		nExp:      nExp,
		nCtrl:     nCtrl,
		replicate: cfg.ReplicateMode(nExp),
	}

	if t.replicate {
		if cfg.PairwiseReplicates {
			// only index-aligned pairs by input order
			for i := 0; i < nExp; i++ {
				t.pairs = append(t.pairs, [2]int{i, i})
			}
		} else {
			// all combinations; every library participates
			for i := 0; i < nExp; i++ {
				for j := 0; j < nCtrl; j++ {
					t.pairs = append(t.pairs, [2]int{i, j})
				}
			}
		}
	}

	return t
}

// Test scores one normalized count vector. normTotals holds the
// genome-wide normalized depth per library; the background of library i
// is normTotals[i] minus the count inside the interval.
func (t *Tester) Test(normCounts, normTotals []float64) TestResult {
	if t.replicate {
		return t.testReplicates(normCounts, normTotals)
	}
	return t.testSingle(normCounts, normTotals)
}

func (t *Tester) background(normCounts, normTotals []float64, i int) float64 {
	bg := normTotals[i] - normCounts[i]
	if bg < 0 {
		bg = 0
	}
	return bg
}

func (t *Tester) testSingle(normCounts, normTotals []float64) TestResult {
	exp := normCounts[0]
	ctrl := normCounts[t.nExp]
	g, p := GTest2x2(
		exp, t.background(normCounts, normTotals, 0),
		ctrl, t.background(normCounts, normTotals, t.nExp),
	)
	return TestResult{
		G:          g,
		PValue:     p,
		FoldChange: foldChange(normCounts[:t.nExp], normCounts[t.nExp:]),
		Tested:     true,
	}
}

func (t *Tester) testReplicates(normCounts, normTotals []float64) TestResult {
	// heterogeneity gate: replicates of one condition must agree
	if t.heterogeneous(normCounts, normTotals, 0, t.nExp) ||
		t.heterogeneous(normCounts, normTotals, t.nExp, t.nExp+t.nCtrl) {
		return TestResult{PValue: 1, FoldChange: 1, Tested: false}
	}

	// replicate-pair gate: report the weakest (most conservative)
	// pairing. Ties on the p-value resolve to the first pairing in
	// (experiment index, control index) order.
	var worstG, worstP float64
	worstP = -1
	minFc := 0.0
	for k, pair := range t.pairs {
		ei := pair[0]
		ci := t.nExp + pair[1]
		g, p := GTest2x2(
			normCounts[ei], t.background(normCounts, normTotals, ei),
			normCounts[ci], t.background(normCounts, normTotals, ci),
		)
		fc := (normCounts[ei] + foldChangePseudoCount) /
			(normCounts[ci] + foldChangePseudoCount)
		if p > worstP {
			worstP = p
			worstG = g
		}
		if k == 0 || fc < minFc {
			minFc = fc
		}
	}

	return TestResult{
		G:          worstG,
		PValue:     worstP,
		FoldChange: minFc,
		Tested:     true,
	}
}

// heterogeneous runs a G-test of homogeneity among the replicates of
// one condition (rows: replicates, columns: interval vs. background).
// A low p-value means the replicates disagree more than expected.
func (t *Tester) heterogeneous(normCounts, normTotals []float64, from, to int) bool {
	n := to - from
	if n < 2 {
		return false
	}
	table := make([][]float64, 0, n)
	for i := from; i < to; i++ {
		table = append(table, []float64{
			normCounts[i],
			t.background(normCounts, normTotals, i),
		})
	}
	_, p := GTest(table)
	return p < t.cfg.HetPValThreshold
}

// Significant applies the calling gates to a scored window or peak.
// The adjusted p-value is gated in both modes; replicate mode
// additionally requires the weakest pairing to clear the raw
// replicate-pair threshold.
func (t *Tester) Significant(res TestResult, padj float64) bool {
	if !res.Tested {
		return false
	}
	if res.FoldChange < t.cfg.FcCutoff {
		return false
	}
	if padj > t.cfg.PAdjThreshold {
		return false
	}
	if t.replicate && res.PValue > t.cfg.RepPairPValThreshold {
		return false
	}
	return true
}

// Replicate reports whether the replicate testing path is active.
func (t *Tester) Replicate() bool {
	return t.replicate
}
