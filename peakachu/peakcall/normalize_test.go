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
	"testing"
)

func floatsEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestFactorsNone(t *testing.T) {
	counts := [][]float64{{1, 2}, {30, 40}}
	factors, err := Factors(NormNone, nil, counts)
	if err != nil {
		t.Fatal(err)
	}
	if !floatsEqual(factors, []float64{1, 1}, 0) {
		t.Errorf("factors = %v, want all 1.0", factors)
	}
}

func TestFactorsManual(t *testing.T) {
	counts := [][]float64{{0}, {0}, {0}, {0}}
	factors, err := Factors(NormManual, []float64{2, 4, 8, 1}, counts)
	if err != nil {
		t.Fatal(err)
	}
	if !floatsEqual(factors, []float64{0.25, 0.5, 1.0, 0.125}, 1e-12) {
		t.Errorf("factors = %v, want [0.25 0.5 1 0.125]", factors)
	}

	if _, err := Factors(NormManual, []float64{1, 2}, counts); err == nil {
		t.Error("factor count mismatch not reported")
	}
}

func TestFactorsCount(t *testing.T) {
	counts := [][]float64{
		{10, 40, 50},  // total 100
		{20, 80, 100}, // total 200
	}
	factors, err := Factors(NormCount, nil, counts)
	if err != nil {
		t.Fatal(err)
	}
	if !floatsEqual(factors, []float64{0.5, 1.0}, 1e-12) {
		t.Errorf("factors = %v, want [0.5 1]", factors)
	}
}

// TMM on identical libraries must yield identical factors, and after
// the max-scaling all of them equal 1.0.
func TestFactorsTMMIdenticalLibraries(t *testing.T) {
	row := []float64{5, 0, 12, 3, 40, 7, 0, 1, 9, 22}
	counts := [][]float64{
		append([]float64(nil), row...),
		append([]float64(nil), row...),
		append([]float64(nil), row...),
	}
	factors, err := Factors(NormTMM, nil, counts)
	if err != nil {
		t.Fatal(err)
	}
	if !floatsEqual(factors, []float64{1, 1, 1}, 1e-9) {
		t.Errorf("factors = %v, want all 1.0", factors)
	}
}

// A library with exactly doubled counts must get roughly twice the
// factor of the other one, with the larger factor pinned at 1.0.
func TestFactorsTMMScaledLibrary(t *testing.T) {
	base := []float64{5, 8, 12, 3, 40, 7, 2, 1, 9, 22, 15, 6}
	doubled := make([]float64, len(base))
	for i, c := range base {
		doubled[i] = 2 * c
	}
	factors, err := Factors(NormTMM, nil, [][]float64{base, doubled})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(factors[1]-1.0) > 1e-9 {
		t.Errorf("largest factor = %v, want 1.0", factors[1])
	}
	if math.Abs(factors[0]-0.5) > 0.05 {
		t.Errorf("factors = %v, want first close to 0.5", factors)
	}
}

func TestFactorsTMMEmptyCounts(t *testing.T) {
	factors, err := Factors(NormTMM, nil, [][]float64{{0, 0}, {0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if !floatsEqual(factors, []float64{1, 1}, 0) {
		t.Errorf("factors = %v, want all 1.0 on empty data", factors)
	}
}

func TestFactorsUnknownMethod(t *testing.T) {
	if _, err := Factors(NormMethod("median"), nil, [][]float64{{1}}); err == nil {
		t.Error("unknown method not reported")
	}
}
