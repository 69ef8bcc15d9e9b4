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

package library

import (
	"path/filepath"
	"strings"

	gn "github.com/pbenner/gonetics"
	"github.com/pkg/errors"
)

// LoadOptions control how alignment files are converted to libraries.
type LoadOptions struct {
	PairedEnd bool

	// MaxInsertSize drops paired-end fragments longer than this.
	// 0 disables the filter.
	MaxInsertSize int
}

// LibraryName derives a library name from an alignment file path.
func LibraryName(file string) string {
	name := filepath.Base(file)
	for _, ext := range []string{".bam", ".BAM"} {
		if strings.HasSuffix(name, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// LoadBam reads a BAM file into a library. Paired-end libraries store
// fragment midpoints, single-end libraries the 5' end of each read.
func LoadBam(file string, control bool, opt LoadOptions) (*Library, error) {
	r := gn.GRanges{}
	var err error
	if opt.PairedEnd {
		err = r.ImportBamPairedEnd(file,
			gn.BamReaderOptions{ReadName: false, ReadCigar: false, ReadSequence: false})
	} else {
		err = r.ImportBamSingleEnd(file,
			gn.BamReaderOptions{ReadName: false, ReadCigar: false, ReadSequence: false})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading bam file: %s", file)
	}

	lib := New(LibraryName(file), control)
	lib.PairedEnd = opt.PairedEnd
	lib.MaxInsertSize = opt.MaxInsertSize

	for i := 0; i < r.Length(); i++ {
		from := r.Ranges[i].From
		to := r.Ranges[i].To

		// entries without strand information are kept on the forward strand
		strand := Forward
		if r.Strand[i] == '-' {
			strand = Reverse
		}

		var pos int
		if opt.PairedEnd {
			if opt.MaxInsertSize > 0 && to-from > opt.MaxInsertSize {
				continue
			}
			pos = (from + to) / 2
		} else {
			if strand == Reverse {
				pos = to - 1
			} else {
				pos = from
			}
		}

		lib.Add(r.Seqnames[i], strand, pos)
	}
	lib.Finalize()

	return lib, nil
}

// RepliconsFromBamHeader reads replicon names and lengths from the
// header of a BAM file.
func RepliconsFromBamHeader(file string) ([]Replicon, error) {
	g, err := gn.BamImportGenome(file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading genome from bam header: %s", file)
	}
	return genomeToReplicons(g), nil
}

// RepliconsFromFile reads replicon names and lengths from a two-column
// chromosome-sizes file.
func RepliconsFromFile(file string) ([]Replicon, error) {
	g := gn.Genome{}
	if err := g.Import(file); err != nil {
		return nil, errors.Wrapf(err, "reading chromosome sizes: %s", file)
	}
	return genomeToReplicons(g), nil
}

func genomeToReplicons(g gn.Genome) []Replicon {
	repls := make([]Replicon, 0, g.Length())
	for i, name := range g.Seqnames {
		repls = append(repls, Replicon{Name: name, Length: g.Lengths[i]})
	}
	return repls
}
