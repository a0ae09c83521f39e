// Package cmd implements the phased command line interface.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridsense-data/phase.report/internal/config"
	"github.com/gridsense-data/phase.report/internal/fsutil"
	"github.com/gridsense-data/phase.report/internal/monitoring"
	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p7model"
	"github.com/gridsense-data/phase.report/internal/power/pipeline"
	"github.com/gridsense-data/phase.report/internal/replay"
)

var (
	flagConfig  string
	flagVerbose bool
	flagTrace   bool
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "phased",
	Short: "Appliance phase classification pipeline",
	Long: `phased streams appliance power samples through the phase classification
pipeline: smoothing, feature extraction, rule labeling, transition
validation, windowing, and optional model inference.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "pipeline config JSON (built-in defaults when omitted)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable diagnostic logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&flagTrace, "trace", false, "enable per-sample trace logging on stderr")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "mute non-pipeline diagnostics")
	rootCmd.CompletionOptions.HiddenDefaultCmd = false
}

// initLogging wires the pipeline log streams: ops always goes to stderr,
// diag and trace are opt-in. PHASE_DEBUG_LOG overrides everything and
// routes all three streams to the named file.
func initLogging() {
	if flagQuiet {
		monitoring.Quiet()
	}

	ops := io.Writer(os.Stderr)
	var diag, trace io.Writer
	if flagVerbose || flagTrace {
		diag = os.Stderr
	}
	if flagTrace {
		trace = os.Stderr
	}
	pipeline.SetLogWriters(ops, diag, trace)

	if path := os.Getenv("PHASE_DEBUG_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "phased: cannot open PHASE_DEBUG_LOG file: %v\n", err)
			return
		}
		pipeline.SetLegacyLogger(f)
	}
}

// loadTuning resolves the pipeline configuration from --config, falling
// back to the built-in defaults.
func loadTuning() (*config.PipelineConfig, error) {
	if flagConfig == "" {
		return config.EmptyPipelineConfig(), nil
	}
	return config.LoadPipelineConfig(flagConfig)
}

// buildClassifier loads the model artifact named by the flag or, when the
// flag is empty, by the config. Returns nil without error when neither
// names one: the pipeline then runs heuristics-only.
func buildClassifier(tuning *config.PipelineConfig, artifactPath string) (p7model.Classifier, error) {
	path := artifactPath
	if path == "" {
		path = tuning.GetModelPath()
	}
	if path == "" {
		return nil, nil
	}

	sizes := p7model.WindowSizes{
		Flattened:  tuning.GetFlattenedWindowSize(),
		Sequential: tuning.GetSequentialWindowSize(),
	}
	return p7model.Load(fsutil.OSFileSystem{}, path, sizes)
}

// readInput loads samples from the named CSV, or from stdin for "-".
func readInput(path string) ([]p1samples.Sample, error) {
	if path == "-" {
		return replay.ReadSamples(os.Stdin)
	}
	return replay.ReadSamplesFile(fsutil.OSFileSystem{}, path)
}

// printStats writes the end-of-run counter summary.
func printStats(w io.Writer, stats pipeline.Stats) {
	fmt.Fprintf(w, "samples: %d in, %d accepted, %d rejected, %d warm-up\n",
		stats.SamplesIn, stats.SamplesAccepted, stats.SamplesRejected, stats.WarmupDrops)
	fmt.Fprintf(w, "phases: %d changes, %d debounce holds, %d forbidden holds\n",
		stats.PhaseChanges, stats.DebounceRejects, stats.ForbiddenRejects)
	for _, ph := range p1samples.AllPhases() {
		if n := stats.ConfirmedByPhase[ph]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d samples\n", ph, n)
		}
	}
	if stats.ModelCalls > 0 {
		fmt.Fprintf(w, "model: %d calls, %d budget skips, %d errors\n",
			stats.ModelCalls, stats.ModelSkips, stats.ModelErrors)
	}
}
