package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridsense-data/phase.report/internal/power/pipeline"
	"github.com/gridsense-data/phase.report/internal/replay"
	"github.com/gridsense-data/phase.report/internal/units"
)

var (
	runInput    string
	runArtifact string
	runUnits    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream a sample CSV through the classification pipeline",
	Long: `Stream a sample CSV (or stdin) through the pipeline, printing confirmed
phase changes and, when a model artifact is configured, per-window
classifications. Ends with a counter summary.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runInput, "input", "i", "-", "sample CSV path (- for stdin)")
	runCmd.Flags().StringVarP(&runArtifact, "artifact", "a", "", "model artifact JSON (overrides config model_path)")
	runCmd.Flags().StringVar(&runUnits, "units", units.Watts, "display units for power values (w, kw)")
}

func runRun(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if !units.IsValid(runUnits) {
		return fmt.Errorf("invalid units %q (valid: %s)", runUnits, units.GetValidUnitsString())
	}

	tuning, err := loadTuning()
	if err != nil {
		return err
	}

	classifier, err := buildClassifier(tuning, runArtifact)
	if err != nil {
		return err
	}

	pl, err := pipeline.New(pipeline.Config{
		Tuning:     tuning,
		Classifier: classifier,
		OnResult: func(cr pipeline.ClassificationResult) {
			fmt.Fprintf(out, "%s  model=%s phase=%-12s confidence=%.3f\n",
				cr.Timestamp.Format(time.RFC3339), cr.Model, cr.Phase, cr.Confidence)
		},
	})
	if err != nil {
		return err
	}

	samples, err := readInput(runInput)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s: %d samples, warm-up %d\n", pl.RunID(), len(samples), pl.WarmUpSamples())

	seen := false
	stats := replay.Run(pl, samples, func(res pipeline.Result) {
		if !res.HasConfirmed {
			return
		}
		if !seen || res.Confirmed.Changed {
			fmt.Fprintf(out, "%s  confirmed %-12s at %s (dwell %s)\n",
				res.Timestamp.Format(time.RFC3339), res.Confirmed.Phase,
				units.FormatPower(res.Smoothed, runUnits), res.Confirmed.Dwell)
			seen = true
		}
	})

	printStats(out, stats)
	return nil
}
