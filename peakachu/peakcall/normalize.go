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

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Factors computes one scale factor per library. Dividing a library's
// raw counts by its factor makes library depths comparable. Factors are
// scaled so that the maximum equals 1.0, keeping normalized counts on
// the observed scale.
//
// counts is the genome-wide per-window count matrix, counts[lib][i],
// library order fixed (experiment libraries first). It is only
// consulted by the tmm method.
func Factors(method NormMethod, manual []float64, counts [][]float64) ([]float64, error) {
	nLibs := len(counts)

	switch method {
	case NormNone:
		return uniformFactors(nLibs), nil
	case NormManual:
		if len(manual) != nLibs {
			return nil, errors.Errorf(
				"number of manual size factors (%d) does not match number of libraries (%d)",
				len(manual), nLibs)
		}
		return scaleToMax(append([]float64(nil), manual...)), nil
	case NormCount:
		totals := libraryTotals(counts)
		return scaleToMax(totals), nil
	case NormTMM:
		return tmmFactors(counts), nil
	}
	return nil, errors.Errorf("unknown normalization method: %s", method)
}

func uniformFactors(n int) []float64 {
	factors := make([]float64, n)
	for i := range factors {
		factors[i] = 1.0
	}
	return factors
}

func libraryTotals(counts [][]float64) []float64 {
	totals := make([]float64, len(counts))
	for li, row := range counts {
		var sum float64
		for _, c := range row {
			sum += c
		}
		totals[li] = sum
	}
	return totals
}

func scaleToMax(factors []float64) []float64 {
	var max float64
	for _, f := range factors {
		if f > max {
			max = f
		}
	}
	if max == 0 {
		return uniformFactors(len(factors))
	}
	for i := range factors {
		factors[i] /= max
		if factors[i] <= 0 || math.IsNaN(factors[i]) {
			factors[i] = 1.0
		}
	}
	return factors
}

// tmm trimming fractions, following the trimmed-mean-of-M-values method
const (
	tmmTrimM = 0.30
	tmmTrimA = 0.05
)

// tmmFactors estimates scale factors with a trimmed mean of log ratios
// (M-values) against a reference library, weighted by inverse
// binomial variance. Libraries with degenerate estimates fall back to
// a plain depth factor of 1.0 relative to the reference.
func tmmFactors(counts [][]float64) []float64 {
	nLibs := len(counts)
	totals := libraryTotals(counts)

	ref := tmmReference(counts, totals)
	if ref < 0 {
		return uniformFactors(nLibs)
	}

	effective := make([]float64, nLibs)
	for li := range counts {
		tmm := 1.0
		if li != ref {
			tmm = tmmRatio(counts[li], totals[li], counts[ref], totals[ref])
		}
		effective[li] = tmm * totals[li]
		if effective[li] <= 0 || math.IsNaN(effective[li]) || math.IsInf(effective[li], 0) {
			effective[li] = totals[li]
		}
	}
	return scaleToMax(effective)
}

// tmmReference picks the library whose scaled upper quartile is closest
// to the mean scaled upper quartile of all libraries.
func tmmReference(counts [][]float64, totals []float64) int {
	uq := make([]float64, len(counts))
	var any bool
	for li, row := range counts {
		if totals[li] == 0 {
			uq[li] = math.NaN()
			continue
		}
		nonzero := make([]float64, 0, len(row))
		for _, c := range row {
			if c > 0 {
				nonzero = append(nonzero, c)
			}
		}
		if len(nonzero) == 0 {
			uq[li] = math.NaN()
			continue
		}
		sort.Float64s(nonzero)
		uq[li] = stat.Quantile(0.75, stat.Empirical, nonzero, nil) / totals[li]
		any = true
	}
	if !any {
		return -1
	}

	var sum float64
	var n int
	for _, q := range uq {
		if !math.IsNaN(q) {
			sum += q
			n++
		}
	}
	mean := sum / float64(n)

	best := -1
	bestDist := math.Inf(1)
	for li, q := range uq {
		if math.IsNaN(q) {
			continue
		}
		d := math.Abs(q - mean)
		if d < bestDist {
			best = li
			bestDist = d
		}
	}
	return best
}

func tmmRatio(obs []float64, obsTotal float64, ref []float64, refTotal float64) float64 {
	if obsTotal == 0 || refTotal == 0 {
		return 1.0
	}

	n := len(obs)
	m := make([]float64, 0, n)
	a := make([]float64, 0, n)
	w := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if obs[i] <= 0 || ref[i] <= 0 {
			continue
		}
		po := obs[i] / obsTotal
		pr := ref[i] / refTotal
		m = append(m, math.Log2(po/pr))
		a = append(a, 0.5*math.Log2(po*pr))
		// delta-method variance of the M-value
		w = append(w, 1.0/(1.0/obs[i]-1.0/obsTotal+1.0/ref[i]-1.0/refTotal))
	}
	if len(m) == 0 {
		return 1.0
	}

	mLo, mHi := quantilePair(m, tmmTrimM)
	aLo, aHi := quantilePair(a, tmmTrimA)

	var sumWM, sumW float64
	for i := range m {
		if m[i] < mLo || m[i] > mHi || a[i] < aLo || a[i] > aHi {
			continue
		}
		if math.IsInf(w[i], 0) || math.IsNaN(w[i]) || w[i] <= 0 {
			continue
		}
		sumWM += w[i] * m[i]
		sumW += w[i]
	}
	if sumW == 0 {
		return 1.0
	}
	return math.Exp2(sumWM / sumW)
}

func quantilePair(values []float64, trim float64) (float64, float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo := stat.Quantile(trim, stat.Empirical, sorted, nil)
	hi := stat.Quantile(1-trim, stat.Empirical, sorted, nil)
	return lo, hi
}
