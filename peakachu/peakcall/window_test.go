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
)

func TestGenerateWindowsCoverage(t *testing.T) {
	cases := []struct {
		length, size, step int
	}{
		{100, 10, 10}, // exact tiling
		{103, 25, 5},  // clipped tail
		{3, 25, 5},    // replicon shorter than one window
		{1, 1, 1},
		{1000, 50, 7},
	}

	for _, c := range cases {
		windows := GenerateWindows(c.length, c.size, c.step)
		if len(windows) == 0 {
			t.Fatalf("L=%d w=%d s=%d: no windows", c.length, c.size, c.step)
		}

		covered := make([]bool, c.length)
		for _, w := range windows {
			if w.Start < 0 || w.End > c.length {
				t.Errorf("L=%d w=%d s=%d: window [%d, %d) out of bounds",
					c.length, c.size, c.step, w.Start, w.End)
			}
			if w.End <= w.Start {
				t.Errorf("L=%d w=%d s=%d: empty window [%d, %d)",
					c.length, c.size, c.step, w.Start, w.End)
			}
			for i := w.Start; i < w.End; i++ {
				covered[i] = true
			}
		}
		for i, ok := range covered {
			if !ok {
				t.Errorf("L=%d w=%d s=%d: position %d not covered",
					c.length, c.size, c.step, i)
				break
			}
		}
	}
}

func TestGenerateWindowsDeterministic(t *testing.T) {
	a := GenerateWindows(1234, 25, 5)
	b := GenerateWindows(1234, 25, 5)
	if !reflect.DeepEqual(a, b) {
		t.Error("window generation is not deterministic")
	}

	if a[0].Start != 0 {
		t.Errorf("first window starts at %d, expected 0", a[0].Start)
	}
	for i := 1; i < len(a); i++ {
		if a[i].Start-a[i-1].Start != 5 {
			t.Errorf("window starts not spaced by step: %d and %d",
				a[i-1].Start, a[i].Start)
		}
	}
}

func TestGenerateWindowsEmptyReplicon(t *testing.T) {
	if windows := GenerateWindows(0, 25, 5); len(windows) != 0 {
		t.Errorf("expected no windows for empty replicon, got %d", len(windows))
	}
}
