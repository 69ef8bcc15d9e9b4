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

// Package output renders peaks and coverage tracks into files.
package output

import (
	"fmt"
	"io"
	"math"
	"path/filepath"

	gn "github.com/pbenner/gonetics"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"

	"github.com/alenzhao/PEAKachu/peakachu/library"
	"github.com/alenzhao/PEAKachu/peakachu/peakcall"
)

// WritePeakTable writes the tab-separated peak table.
func WritePeakTable(w io.Writer, peaks []peakcall.Peak, libNames []string) error {
	if _, err := fmt.Fprint(w, "replicon\tstart\tend\tstrand"); err != nil {
		return err
	}
	for _, name := range libNames {
		if _, err := fmt.Fprintf(w, "\t%s", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\tfold_change\tg_statistic\tp_value\tp_adj\n"); err != nil {
		return err
	}

	for _, p := range peaks {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%c",
			p.Replicon, p.Start, p.End, p.Strand); err != nil {
			return err
		}
		for _, c := range p.NormCounts {
			if _, err := fmt.Fprintf(w, "\t%.2f", c); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "\t%.3f\t%.3f\t%.3e\t%.3e\n",
			p.FoldChange, p.G, p.PValue, p.PAdj); err != nil {
			return err
		}
	}
	return nil
}

// WritePeakTableFile writes the peak table to a (optionally gzipped) file.
func WritePeakTableFile(file string, peaks []peakcall.Peak, libNames []string) error {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return errors.Wrap(err, file)
	}
	defer outfh.Close()

	return WritePeakTable(outfh, peaks, libNames)
}

// WritePeakBed exports peaks as a BED6 file. The score column holds
// -100*log10(padj), capped at 1000 as the BED format requires.
func WritePeakBed(file string, peaks []peakcall.Peak) error {
	n := len(peaks)
	seqnames := make([]string, n)
	from := make([]int, n)
	to := make([]int, n)
	strand := make([]byte, n)
	names := make([]string, n)
	scores := make([]float64, n)
	for i, p := range peaks {
		seqnames[i] = p.Replicon
		from[i] = p.Start
		to[i] = p.End
		strand[i] = byte(p.Strand)
		names[i] = fmt.Sprintf("peak_%d", i+1)
		scores[i] = bedScore(p.PAdj)
	}

	r := gn.NewGRanges(seqnames, from, to, strand)
	r.AddMeta("name", names)
	r.AddMeta("score", scores)
	return r.ExportBed6(file, false)
}

func bedScore(padj float64) float64 {
	if padj <= 0 {
		return 1000
	}
	score := -100 * math.Log10(padj)
	if score > 1000 {
		score = 1000
	}
	if score < 0 {
		score = 0
	}
	return score
}

// WriteCoverageTracks writes one wiggle file per library and strand
// with the normalized per-window counts, suitable as genome-browser
// coverage tracks. Files are gzip-compressed into dir.
func WriteCoverageTracks(dir string, res *peakcall.Result) error {
	for li, lib := range res.Libraries {
		for _, strand := range library.Strands {
			file := filepath.Join(dir, trackFileName(lib.Name, strand))
			if err := writeWiggle(file, res, li, strand); err != nil {
				return err
			}
		}
	}
	return nil
}

func trackFileName(libName string, strand library.Strand) string {
	s := "forward"
	if strand == library.Reverse {
		s = "reverse"
	}
	return fmt.Sprintf("%s_%s.wig.gz", libName, s)
}

func writeWiggle(file string, res *peakcall.Result, li int, strand library.Strand) error {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return errors.Wrap(err, file)
	}
	defer outfh.Close()

	lib := res.Libraries[li]
	if _, err = fmt.Fprintf(outfh,
		"track type=wiggle_0 name=\"%s (%c)\"\n", lib.Name, strand); err != nil {
		return err
	}

	for _, t := range res.Tracks {
		if t.Strand != strand {
			continue
		}

		// wiggle positions are 1-based
		header := false
		for i := range t.Windows {
			w := &t.Windows[i]
			v := w.NormCounts[li]
			if v == 0 {
				continue
			}
			if !header {
				if _, err = fmt.Fprintf(outfh, "variableStep chrom=%s span=%d\n",
					t.Replicon, res.StepSize); err != nil {
					return err
				}
				header = true
			}
			if _, err = fmt.Fprintf(outfh, "%d %.2f\n", w.Start+1, v); err != nil {
				return err
			}
		}
	}
	return nil
}
