package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridsense-data/phase.report/internal/fsutil"
	"github.com/gridsense-data/phase.report/internal/power/p7model"
)

var modelArtifact string

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Model artifact utilities",
}

var modelValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a model artifact against the pipeline configuration",
	Long: `Load a model artifact, run the full schema validation, and check its
window geometry against the configured window sizes. Prints the resolved
model summary on success and the first violation on failure.`,
	RunE: runModelValidate,
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelValidateCmd)

	modelValidateCmd.Flags().StringVarP(&modelArtifact, "artifact", "a", "", "model artifact JSON")
	modelValidateCmd.MarkFlagRequired("artifact")
}

func runModelValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	tuning, err := loadTuning()
	if err != nil {
		return err
	}

	art, err := p7model.LoadArtifact(fsutil.OSFileSystem{}, modelArtifact)
	if err != nil {
		return err
	}

	sizes := p7model.WindowSizes{
		Flattened:  tuning.GetFlattenedWindowSize(),
		Sequential: tuning.GetSequentialWindowSize(),
	}
	cls, err := p7model.New(art, sizes)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "model:    %s\n", cls.Model())
	if !art.TrainedAt.IsZero() {
		fmt.Fprintf(out, "trained:  %s\n", art.TrainedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "window:   %s x %d\n", art.WindowShape, art.WindowSize)
	fmt.Fprintf(out, "features: %d columns\n", len(art.FeatureColumns))
	fmt.Fprintf(out, "classes:  %s\n", strings.Join(art.Classes, ", "))
	fmt.Fprintln(out, "artifact is valid for the configured window sizes")
	return nil
}
