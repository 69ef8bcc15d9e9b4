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
)

func TestConfigValidate(t *testing.T) {
	ok := DefaultConfig()
	if err := ok.Validate(1, 1); err != nil {
		t.Errorf("default config rejected: %s", err)
	}

	// step size larger than window size would skip genomic positions
	c := DefaultConfig()
	c.WindowSize = 10
	c.StepSize = 20
	if err := c.Validate(1, 1); err == nil {
		t.Error("step size > window size not rejected")
	}

	c = DefaultConfig()
	c.NormMethod = NormManual
	c.SizeFactors = []float64{1, 2}
	if err := c.Validate(1, 1); err != nil {
		t.Errorf("matching manual factors rejected: %s", err)
	}
	c.SizeFactors = []float64{1, 2, 3}
	if err := c.Validate(1, 1); err == nil {
		t.Error("size-factor count mismatch not rejected")
	}

	c = DefaultConfig()
	if err := c.Validate(0, 1); err == nil {
		t.Error("missing experiment libraries not rejected")
	}
	if err := c.Validate(1, 0); err == nil {
		t.Error("missing control libraries not rejected")
	}

	// replicate mode needs equal library counts for pairing
	c = DefaultConfig()
	if err := c.Validate(3, 2); err == nil {
		t.Error("unequal replicate counts not rejected")
	}
	if err := c.Validate(2, 2); err != nil {
		t.Errorf("replicate config rejected: %s", err)
	}

	c = DefaultConfig()
	c.NormMethod = "quantile"
	if err := c.Validate(1, 1); err == nil {
		t.Error("unknown normalization method not rejected")
	}

	c = DefaultConfig()
	c.MaxProc = 0
	if err := c.Validate(1, 1); err == nil {
		t.Error("zero worker count not rejected")
	}
}
