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

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	gn "github.com/pbenner/gonetics"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alenzhao/PEAKachu/peakachu/library"
	"github.com/alenzhao/PEAKachu/peakachu/output"
	"github.com/alenzhao/PEAKachu/peakachu/peakcall"
)

var predefinedCmd = &cobra.Command{
	Use:   "predefined",
	Short: "Score externally supplied peak intervals",
	Long: `Score externally supplied peak intervals

Instead of scanning with sliding windows, read counts are collected
over peak intervals produced by an external tool (e.g. a blockbuster-
style clustering of read alignments), normalized and tested for
experiment/control enrichment with the same G-test engine as the
adaptive approach. Intervals are read from a BED6 file; entries
without strand information are placed on the forward strand.

Differential-expression modeling of the original predefined-peak
pipeline is not reimplemented here; use the exported count table with
a dedicated tool if shrinkage estimates are needed.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		timeStart := time.Now()
		defer func() {
			if opt.Verbose || opt.Log2File {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------
		// flags

		expFiles := getFlagStringSlice(cmd, "exp")
		ctrlFiles := getFlagStringSlice(cmd, "ctrl")
		peaksFile := getFlagString(cmd, "peaks")
		outDir := getFlagString(cmd, "out-dir")
		force := getFlagBool(cmd, "force")

		if peaksFile == "" {
			checkError(fmt.Errorf("flag --peaks is needed"))
		}
		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir is needed"))
		}
		if len(expFiles) == 0 {
			checkError(fmt.Errorf("at least one experiment library is needed (-e/--exp)"))
		}
		if len(ctrlFiles) == 0 {
			checkError(fmt.Errorf("at least one control library is needed (-c/--ctrl)"))
		}

		cfg := peakcall.DefaultConfig()
		cfg.NormMethod = peakcall.NormMethod(getFlagString(cmd, "norm-method"))
		cfg.SizeFactors = getFlagFloat64Slice(cmd, "size-factors")
		cfg.HetPValThreshold = getFlagFloat64(cmd, "het-p-val-threshold")
		cfg.RepPairPValThreshold = getFlagFloat64(cmd, "rep-pair-p-val-threshold")
		cfg.PAdjThreshold = getFlagFloat64(cmd, "padj-threshold")
		cfg.FcCutoff = getFlagFloat64(cmd, "fc-cutoff")
		cfg.PairwiseReplicates = getFlagBool(cmd, "pairwise-replicates")
		cfg.MaxProc = opt.NumCPUs

		loadOpt := library.LoadOptions{
			PairedEnd:     getFlagBool(cmd, "paired-end"),
			MaxInsertSize: getFlagNonNegativeInt(cmd, "max-insert-size"),
		}

		checkError(cfg.Validate(len(expFiles), len(ctrlFiles)))

		if cfg.NormMethod == peakcall.NormNone && len(cfg.SizeFactors) > 0 {
			log.Warningf("size factors are ignored with --norm-method none")
			cfg.SizeFactors = nil
		}

		if opt.Verbose || opt.Log2File {
			log.Infof("PEAKachu v%s", VERSION)
			log.Info()
		}

		makeOutDir(outDir, force, "--out-dir", opt.Verbose)

		// ---------------------------------------------------------------
		// input

		regions, err := readRegions(peaksFile)
		checkError(err)
		if len(regions) == 0 {
			checkError(fmt.Errorf("no peak intervals found in %s", peaksFile))
		}
		if opt.Verbose || opt.Log2File {
			log.Infof("%d peak intervals read from %s", len(regions), peaksFile)
		}

		exp := loadLibraries(expFiles, false, loadOpt, opt)
		ctrl := loadLibraries(ctrlFiles, true, loadOpt, opt)

		// ---------------------------------------------------------------
		// scoring

		peaks, factors, err := peakcall.ScoreRegions(&cfg, regions, exp, ctrl)
		checkError(err)

		if opt.Verbose || opt.Log2File {
			log.Infof("  normalization factors: %s", formatFactors(factors))
		}

		libs := append(exp, ctrl...)
		libNames := make([]string, len(libs))
		for i, lib := range libs {
			libNames[i] = lib.Name
		}

		checkError(output.WritePeakTableFile(filepath.Join(outDir, "peaks.tsv"), peaks, libNames))
		checkError(output.WritePeakBed(filepath.Join(outDir, "peaks.bed"), peaks))
		checkError(writeRunInfo(filepath.Join(outDir, "run-info.toml"), "predefined", &cfg, libs, factors, len(peaks)))

		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("results saved to: %s", outDir)
		}
	},
}

func readRegions(file string) ([]peakcall.Region, error) {
	r := gn.GRanges{}
	if err := r.ImportBed6(file); err != nil {
		return nil, errors.Wrapf(err, "reading peak intervals: %s", file)
	}

	regions := make([]peakcall.Region, 0, r.Length())
	for i := 0; i < r.Length(); i++ {
		strand := library.Forward
		if r.Strand[i] == '-' {
			strand = library.Reverse
		}
		regions = append(regions, peakcall.Region{
			Replicon: r.Seqnames[i],
			Strand:   strand,
			Start:    r.Ranges[i].From,
			End:      r.Ranges[i].To,
		})
	}
	return regions, nil
}

func init() {
	RootCmd.AddCommand(predefinedCmd)

	predefinedCmd.Flags().StringSliceP("exp", "e", []string{},
		formatFlagUsage(`Experiment (CLIP) library in BAM format. Repeat for replicates.`))
	predefinedCmd.Flags().StringSliceP("ctrl", "c", []string{},
		formatFlagUsage(`Control library in BAM format. Repeat for replicates.`))
	predefinedCmd.Flags().StringP("peaks", "", "",
		formatFlagUsage(`Peak intervals in BED6 format.`))
	predefinedCmd.Flags().BoolP("paired-end", "", false,
		formatFlagUsage(`Libraries are paired-end. Fragment midpoints are counted instead of read 5'-ends.`))
	predefinedCmd.Flags().IntP("max-insert-size", "", 200,
		formatFlagUsage(`Maximum fragment size for paired-end libraries. 0 disables the filter.`))

	predefinedCmd.Flags().StringP("norm-method", "n", "tmm",
		formatFlagUsage(`Normalization method: tmm, count, manual or none.`))
	predefinedCmd.Flags().Float64SliceP("size-factors", "", []float64{},
		formatFlagUsage(`Manual size factors (with --norm-method manual), experiment libraries first.`))
	predefinedCmd.Flags().Float64P("het-p-val-threshold", "", 0.01,
		formatFlagUsage(`Peaks where replicates of one condition disagree with a p-value below this are excluded.`))
	predefinedCmd.Flags().Float64P("rep-pair-p-val-threshold", "", 0.05,
		formatFlagUsage(`Raw p-value an experiment/control replicate pairing must clear.`))
	predefinedCmd.Flags().Float64P("padj-threshold", "p", 0.05,
		formatFlagUsage(`Benjamini-Hochberg adjusted p-value threshold.`))
	predefinedCmd.Flags().Float64P("fc-cutoff", "f", 2.0,
		formatFlagUsage(`Minimum fold change of experiment over control.`))
	predefinedCmd.Flags().BoolP("pairwise-replicates", "", false,
		formatFlagUsage(`Only test index-aligned (experiment_i, control_i) replicate pairs instead of all combinations.`))

	predefinedCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory.`))
	predefinedCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existing output directory.`))

	predefinedCmd.SetUsageTemplate(usageTemplate("-e <exp.bam> -c <ctrl.bam> --peaks <peaks.bed> -O <out dir>"))
}
