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

// Package library holds per-sample read positions indexed by replicon
// and strand, loaded from alignment files.
package library

import (
	"sort"

	"github.com/twotwotwo/sorts/sortutil"
)

// Strand of a replicon.
type Strand byte

// The two strands.
const (
	Forward Strand = '+'
	Reverse Strand = '-'
)

// Strands in fixed processing order.
var Strands = [2]Strand{Forward, Reverse}

// Replicon is a named genomic sequence with a length.
type Replicon struct {
	Name   string
	Length int
}

// Library is one sequencing sample. Read positions are the representative
// positions of reads/fragments (fragment midpoint for paired-end data,
// 5' end for single-end data), kept sorted per replicon and strand.
// A Library is immutable after Finalize.
type Library struct {
	Name      string
	Control   bool
	PairedEnd bool

	// MaxInsertSize is the fragment-size cutoff applied during loading
	// of paired-end data. 0 means no filtering.
	MaxInsertSize int

	positions map[string]*[2][]int
	total     int
	finalized bool
}

// New returns an empty library.
func New(name string, control bool) *Library {
	return &Library{
		Name:      name,
		Control:   control,
		positions: make(map[string]*[2][]int, 8),
	}
}

func strandIndex(strand Strand) int {
	if strand == Reverse {
		return 1
	}
	return 0
}

// Add records one representative read position.
func (lib *Library) Add(replicon string, strand Strand, pos int) {
	p, ok := lib.positions[replicon]
	if !ok {
		p = &[2][]int{}
		lib.positions[replicon] = p
	}
	i := strandIndex(strand)
	p[i] = append(p[i], pos)
	lib.total++
}

// Finalize sorts all position lists. Must be called once after loading.
func (lib *Library) Finalize() {
	for _, p := range lib.positions {
		sortutil.Ints(p[0])
		sortutil.Ints(p[1])
	}
	lib.finalized = true
}

// Total returns the number of reads/fragments in the library.
func (lib *Library) Total() int {
	return lib.total
}

// Positions returns the sorted representative positions on one
// replicon/strand. The returned slice must not be modified.
func (lib *Library) Positions(replicon string, strand Strand) []int {
	p, ok := lib.positions[replicon]
	if !ok {
		return nil
	}
	return p[strandIndex(strand)]
}

// CountRange counts reads whose representative position falls in the
// half-open interval [start, end) on one replicon/strand.
func (lib *Library) CountRange(replicon string, strand Strand, start, end int) int {
	pos := lib.Positions(replicon, strand)
	if len(pos) == 0 {
		return 0
	}
	lo := sort.SearchInts(pos, start)
	hi := sort.SearchInts(pos, end)
	return hi - lo
}

// RepliconTotal returns the number of reads on one replicon/strand.
func (lib *Library) RepliconTotal(replicon string, strand Strand) int {
	return len(lib.Positions(replicon, strand))
}
