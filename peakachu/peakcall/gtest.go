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
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// GTest runs a log-likelihood-ratio test of independence on a
// contingency table. Zero cells are handled with a pseudo-count of 1
// added to every cell of the table. The p-value comes from the
// chi-squared distribution with (rows-1)*(cols-1) degrees of freedom.
func GTest(table [][]float64) (g, p float64) {
	rows := len(table)
	if rows < 2 {
		return 0, 1
	}
	cols := len(table[0])
	if cols < 2 {
		return 0, 1
	}

	var hasZero bool
	for _, row := range table {
		for _, o := range row {
			if o == 0 {
				hasZero = true
			}
		}
	}

	rowSums := make([]float64, rows)
	colSums := make([]float64, cols)
	var total float64
	for i, row := range table {
		for j, o := range row {
			if hasZero {
				o++
			}
			rowSums[i] += o
			colSums[j] += o
			total += o
		}
	}
	if total == 0 {
		return 0, 1
	}

	for i, row := range table {
		for j, o := range row {
			if hasZero {
				o++
			}
			if o == 0 {
				continue
			}
			e := rowSums[i] * colSums[j] / total
			g += o * math.Log(o/e)
		}
	}
	g *= 2

	if g < 0 { // numerical noise on near-independent tables
		g = 0
	}

	df := float64((rows - 1) * (cols - 1))
	p = distuv.ChiSquared{K: df}.Survival(g)
	return g, p
}

// GTest2x2 tests one window (or peak) of one experiment/control library
// pair against the library backgrounds.
func GTest2x2(expCount, expBackground, ctrlCount, ctrlBackground float64) (g, p float64) {
	return GTest([][]float64{
		{expCount, expBackground},
		{ctrlCount, ctrlBackground},
	})
}

// AdjustBH computes Benjamini-Hochberg adjusted p-values for one family
// of tests. The input order is preserved in the output.
func AdjustBH(pvals []float64) []float64 {
	n := len(pvals)
	padj := make([]float64, n)
	if n == 0 {
		return padj
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return pvals[order[a]] < pvals[order[b]]
	})

	min := 1.0
	for k := n - 1; k >= 0; k-- {
		i := order[k]
		v := pvals[i] * float64(n) / float64(k+1)
		if v < min {
			min = v
		}
		padj[i] = min
	}
	return padj
}

// foldChange compares mean normalized experiment and control counts
// with a pseudo-count guarding against empty control windows.
const foldChangePseudoCount = 1.0

func foldChange(expCounts, ctrlCounts []float64) float64 {
	return (mean(expCounts) + foldChangePseudoCount) /
		(mean(ctrlCounts) + foldChangePseudoCount)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
