package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridsense-data/phase.report/internal/fsutil"
	"github.com/gridsense-data/phase.report/internal/power/monitor"
	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p3features"
	"github.com/gridsense-data/phase.report/internal/power/pipeline"
	"github.com/gridsense-data/phase.report/internal/replay"
	"github.com/gridsense-data/phase.report/internal/security"
)

var (
	replayInput    string
	replayArtifact string
	replayOutDir   string
	replayPNG      bool
	replayHTML     bool
	replayFeatures bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a sample CSV and write run artifacts",
	Long: `Replay a sample CSV through the pipeline and write run artifacts into
an output directory: a per-sample results CSV, optional PNG trace plots,
an optional HTML report, and an optional labeled feature CSV for the
offline training jobs.`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayInput, "input", "i", "-", "sample CSV path (- for stdin)")
	replayCmd.Flags().StringVarP(&replayArtifact, "artifact", "a", "", "model artifact JSON (overrides config model_path)")
	replayCmd.Flags().StringVarP(&replayOutDir, "out", "o", "", "output directory (default runs/<run-id>)")
	replayCmd.Flags().BoolVar(&replayPNG, "png", false, "write PNG trace plots")
	replayCmd.Flags().BoolVar(&replayHTML, "html", false, "write an HTML report")
	replayCmd.Flags().BoolVar(&replayFeatures, "export-features", false, "write the labeled feature CSV")
}

func runReplay(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fsys := fsutil.OSFileSystem{}

	tuning, err := loadTuning()
	if err != nil {
		return err
	}

	classifier, err := buildClassifier(tuning, replayArtifact)
	if err != nil {
		return err
	}

	// The feature writer is bound after the output directory is known;
	// the hook fires only once samples flow, well after that.
	var fw *replay.FeatureWriter
	cfg := pipeline.Config{Tuning: tuning, Classifier: classifier}
	if replayFeatures {
		cfg.OnFeatures = func(ts time.Time, phase p1samples.Phase, fv p3features.FeatureVector) {
			if fw != nil {
				fw.Write(ts, phase, fv)
			}
		}
	}

	pl, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	samples, err := readInput(replayInput)
	if err != nil {
		return err
	}

	outDir := replayOutDir
	if outDir == "" {
		outDir = filepath.Join("runs", pl.RunID())
	}
	if err := security.ValidateExportPath(outDir); err != nil {
		return err
	}
	if err := fsys.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	resultsFile, err := fsys.Create(filepath.Join(outDir, "results.csv"))
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer resultsFile.Close()

	rw := replay.NewResultsWriter(resultsFile)
	rw.WriteHeader()

	if replayFeatures {
		featFile, err := fsys.Create(filepath.Join(outDir, "features.csv"))
		if err != nil {
			return fmt.Errorf("failed to create features file: %w", err)
		}
		defer featFile.Close()

		fw = replay.NewFeatureWriter(featFile)
		fw.WriteHeader()
	}

	fmt.Fprintf(out, "run %s: %d samples, warm-up %d\n", pl.RunID(), len(samples), pl.WarmUpSamples())

	rec := monitor.NewRecorder()
	stats := replay.Run(pl, samples, func(res pipeline.Result) {
		rw.WriteResult(res)
		rec.Observe(res)
	})

	if err := rw.Flush(); err != nil {
		return fmt.Errorf("failed to write results CSV: %w", err)
	}
	if fw != nil {
		if err := fw.Flush(); err != nil {
			return fmt.Errorf("failed to write features CSV: %w", err)
		}
	}

	if replayPNG {
		tp := monitor.NewTracePlotter(rec, outDir)
		n, err := tp.GeneratePlots()
		if err != nil {
			return fmt.Errorf("failed to generate plots: %w", err)
		}
		fmt.Fprintf(out, "wrote %d trace plots\n", n)
	}

	if replayHTML {
		reportFile, err := fsys.Create(filepath.Join(outDir, "report.html"))
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		if err := monitor.WriteReport(reportFile, rec, stats, pl.RunID()); err != nil {
			reportFile.Close()
			return err
		}
		if err := reportFile.Close(); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	printStats(out, stats)
	fmt.Fprintf(out, "artifacts in %s\n", outDir)
	return nil
}
