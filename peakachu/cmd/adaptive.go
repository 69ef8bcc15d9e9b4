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
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alenzhao/PEAKachu/peakachu/library"
	"github.com/alenzhao/PEAKachu/peakachu/output"
	"github.com/alenzhao/PEAKachu/peakachu/peakcall"
)

var adaptiveCmd = &cobra.Command{
	Use:   "adaptive",
	Short: "Call peaks with sliding windows",
	Long: `Call peaks with sliding windows

Each replicon is scanned on both strands with fixed-size windows
advancing by a fixed step. Per-window read counts of all libraries are
normalized, tested for experiment/control enrichment with a G-test and
corrected genome-wide with the Benjamini-Hochberg procedure. Adjacent
significant windows are merged into peaks, whose statistics are then
recomputed over the merged span.

With more than one experiment library, replicates are required to agree
(heterogeneity gate) and a window must stay significant under its
weakest experiment/control pairing.

Input:
  1. Experiment and control libraries as coordinate-sorted BAM files,
     via -e/--exp and -c/--ctrl (repeatable), or whole directories via
     --exp-dir/--ctrl-dir.
  2. Replicon lengths are taken from the first experiment BAM header,
     or from a two-column chromosome-sizes file (-s/--chrom-sizes).

Output:
  peaks.tsv, peaks.bed, per-library coverage tracks (coverage/) and
  run-info.toml in the output directory (-O/--out-dir).

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
		expDir := getFlagString(cmd, "exp-dir")
		ctrlDir := getFlagString(cmd, "ctrl-dir")
		chromSizes := getFlagString(cmd, "chrom-sizes")

		outDir := getFlagString(cmd, "out-dir")
		force := getFlagBool(cmd, "force")
		noTracks := getFlagBool(cmd, "no-tracks")

		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir is needed"))
		}

		cfg := peakcall.Config{
			WindowSize: getFlagPositiveInt(cmd, "window-size"),
			StepSize:   getFlagPositiveInt(cmd, "step-size"),

			NormMethod:  peakcall.NormMethod(getFlagString(cmd, "norm-method")),
			SizeFactors: getFlagFloat64Slice(cmd, "size-factors"),

			HetPValThreshold:     getFlagFloat64(cmd, "het-p-val-threshold"),
			RepPairPValThreshold: getFlagFloat64(cmd, "rep-pair-p-val-threshold"),
			PAdjThreshold:        getFlagFloat64(cmd, "padj-threshold"),
			MadMultiplier:        getFlagFloat64(cmd, "mad-multiplier"),
			FcCutoff:             getFlagFloat64(cmd, "fc-cutoff"),

			PairwiseReplicates: getFlagBool(cmd, "pairwise-replicates"),

			MaxProc: opt.NumCPUs,
			Verbose: opt.Verbose && !opt.Log2File,
		}

		loadOpt := library.LoadOptions{
			PairedEnd:     getFlagBool(cmd, "paired-end"),
			MaxInsertSize: getFlagNonNegativeInt(cmd, "max-insert-size"),
		}

		reBam := regexp.MustCompile(`(?i)\.bam$`)
		if expDir != "" {
			files, err := getFileListFromDir(expDir, reBam, opt.NumCPUs)
			checkError(errors.Wrapf(err, "walking dir: %s", expDir))
			expFiles = append(expFiles, files...)
		}
		if ctrlDir != "" {
			files, err := getFileListFromDir(ctrlDir, reBam, opt.NumCPUs)
			checkError(errors.Wrapf(err, "walking dir: %s", ctrlDir))
			ctrlFiles = append(ctrlFiles, files...)
		}

		if len(expFiles) == 0 {
			checkError(fmt.Errorf("at least one experiment library is needed (-e/--exp or --exp-dir)"))
		}
		if len(ctrlFiles) == 0 {
			checkError(fmt.Errorf("at least one control library is needed (-c/--ctrl or --ctrl-dir)"))
		}

		// fail fast on configuration before any expensive computation
		checkError(cfg.Validate(len(expFiles), len(ctrlFiles)))

		if cfg.NormMethod == peakcall.NormNone && len(cfg.SizeFactors) > 0 {
			log.Warningf("size factors are ignored with --norm-method none")
			cfg.SizeFactors = nil
		}

		// ---------------------------------------------------------------
		// log

		if opt.Verbose || opt.Log2File {
			log.Infof("PEAKachu v%s", VERSION)
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Infof("  experiment libraries: %d", len(expFiles))
			log.Infof("  control libraries: %d", len(ctrlFiles))
			log.Infof("  window size: %d, step size: %d", cfg.WindowSize, cfg.StepSize)
			log.Infof("  normalization method: %s", cfg.NormMethod)
			log.Infof("  fold-change cutoff: %g", cfg.FcCutoff)
			log.Infof("  adjusted p-value threshold: %g", cfg.PAdjThreshold)
			if len(expFiles) > 1 {
				log.Infof("  heterogeneity p-value threshold: %g", cfg.HetPValThreshold)
				log.Infof("  replicate-pair p-value threshold: %g", cfg.RepPairPValThreshold)
				log.Infof("  pairwise replicates: %v", cfg.PairwiseReplicates)
			}
			log.Infof("  MAD multiplier: %g", cfg.MadMultiplier)
			log.Infof("  threads: %d", cfg.MaxProc)
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
		}

		makeOutDir(outDir, force, "--out-dir", opt.Verbose)

		// ---------------------------------------------------------------
		// loading libraries

		if opt.Verbose || opt.Log2File {
			log.Infof("loading %d experiment and %d control libraries ...",
				len(expFiles), len(ctrlFiles))
		}

		exp := loadLibraries(expFiles, false, loadOpt, opt)
		ctrl := loadLibraries(ctrlFiles, true, loadOpt, opt)

		var repls []library.Replicon
		var err error
		if chromSizes != "" {
			repls, err = library.RepliconsFromFile(chromSizes)
		} else {
			repls, err = library.RepliconsFromBamHeader(expFiles[0])
		}
		checkError(err)
		if len(repls) == 0 {
			checkError(fmt.Errorf("no replicons found"))
		}
		if opt.Verbose || opt.Log2File {
			log.Infof("  %d replicons", len(repls))
		}

		// ---------------------------------------------------------------
		// peak calling

		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("calling peaks ...")
		}

		res, err := peakcall.CallPeaks(&cfg, repls, exp, ctrl)
		checkError(err)

		if opt.Verbose || opt.Log2File {
			log.Infof("  normalization factors: %s", formatFactors(res.Factors))
			log.Infof("  tested windows: %d", res.TestedWindows)
			log.Infof("  peaks: %d", len(res.Peaks))
		}

		// ---------------------------------------------------------------
		// output

		libNames := make([]string, len(res.Libraries))
		for i, lib := range res.Libraries {
			libNames[i] = lib.Name
		}

		checkError(output.WritePeakTableFile(filepath.Join(outDir, "peaks.tsv"), res.Peaks, libNames))
		checkError(output.WritePeakBed(filepath.Join(outDir, "peaks.bed"), res.Peaks))

		if !noTracks {
			trackDir := filepath.Join(outDir, "coverage")
			checkError(os.MkdirAll(trackDir, 0777))
			checkError(output.WriteCoverageTracks(trackDir, res))
		}

		checkError(writeRunInfo(filepath.Join(outDir, "run-info.toml"), "adaptive", &cfg, res.Libraries, res.Factors, len(res.Peaks)))

		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("results saved to: %s", outDir)
		}
	},
}

func loadLibraries(files []string, control bool, loadOpt library.LoadOptions, opt *Options) []*library.Library {
	libs := make([]*library.Library, 0, len(files))
	for _, file := range files {
		lib, err := library.LoadBam(file, control, loadOpt)
		checkError(err)
		if opt.Verbose || opt.Log2File {
			log.Infof("  %s: %d reads", lib.Name, lib.Total())
		}
		libs = append(libs, lib)
	}
	return libs
}

func formatFactors(factors []float64) string {
	s := ""
	for i, f := range factors {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%.3f", f)
	}
	return s
}

func init() {
	RootCmd.AddCommand(adaptiveCmd)

	// -----------------------------  input  -----------------------------

	adaptiveCmd.Flags().StringSliceP("exp", "e", []string{},
		formatFlagUsage(`Experiment (CLIP) library in BAM format. Repeat for replicates.`))
	adaptiveCmd.Flags().StringSliceP("ctrl", "c", []string{},
		formatFlagUsage(`Control library in BAM format. Repeat for replicates.`))
	adaptiveCmd.Flags().StringP("exp-dir", "", "",
		formatFlagUsage(`Directory containing experiment BAM files. Directory symlinks are followed.`))
	adaptiveCmd.Flags().StringP("ctrl-dir", "", "",
		formatFlagUsage(`Directory containing control BAM files. Directory symlinks are followed.`))
	adaptiveCmd.Flags().StringP("chrom-sizes", "s", "",
		formatFlagUsage(`Two-column file with replicon names and lengths. By default they are read from the first experiment BAM header.`))
	adaptiveCmd.Flags().BoolP("paired-end", "", false,
		formatFlagUsage(`Libraries are paired-end. Fragment midpoints are counted instead of read 5'-ends.`))
	adaptiveCmd.Flags().IntP("max-insert-size", "", 200,
		formatFlagUsage(`Maximum fragment size for paired-end libraries. 0 disables the filter.`))

	// -----------------------------  windows  -----------------------------

	adaptiveCmd.Flags().IntP("window-size", "w", 25,
		formatFlagUsage(`Window size in base pairs.`))
	adaptiveCmd.Flags().IntP("step-size", "t", 5,
		formatFlagUsage(`Step between window starts. Must not exceed the window size.`))

	// -----------------------------  statistics  -----------------------------

	adaptiveCmd.Flags().StringP("norm-method", "n", "tmm",
		formatFlagUsage(`Normalization method: tmm, count, manual or none.`))
	adaptiveCmd.Flags().Float64SliceP("size-factors", "", []float64{},
		formatFlagUsage(`Manual size factors (with --norm-method manual), experiment libraries first.`))
	adaptiveCmd.Flags().Float64P("het-p-val-threshold", "", 0.01,
		formatFlagUsage(`Windows where replicates of one condition disagree with a p-value below this are excluded.`))
	adaptiveCmd.Flags().Float64P("rep-pair-p-val-threshold", "", 0.05,
		formatFlagUsage(`Raw p-value an experiment/control replicate pairing must clear.`))
	adaptiveCmd.Flags().Float64P("padj-threshold", "p", 0.05,
		formatFlagUsage(`Benjamini-Hochberg adjusted p-value threshold.`))
	adaptiveCmd.Flags().Float64P("mad-multiplier", "", 2.0,
		formatFlagUsage(`Windows below median + MAD*multiplier of the experiment signal are not tested.`))
	adaptiveCmd.Flags().Float64P("fc-cutoff", "f", 2.0,
		formatFlagUsage(`Minimum fold change of experiment over control.`))
	adaptiveCmd.Flags().BoolP("pairwise-replicates", "", false,
		formatFlagUsage(`Only test index-aligned (experiment_i, control_i) replicate pairs instead of all combinations.`))

	// -----------------------------  output  -----------------------------

	adaptiveCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory.`))
	adaptiveCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existing output directory.`))
	adaptiveCmd.Flags().BoolP("no-tracks", "", false,
		formatFlagUsage(`Do not write normalized coverage tracks.`))

	adaptiveCmd.SetUsageTemplate(usageTemplate("-e <exp.bam> -c <ctrl.bam> [-w <size>] [-t <step>] -O <out dir>"))
}
