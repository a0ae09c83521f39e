package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridsense-data/phase.report/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, git commit, and build date of phased.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "phased version %s\n", version.Version)
		fmt.Fprintf(out, "  Git commit: %s\n", version.GitSHA)
		fmt.Fprintf(out, "  Build date: %s\n", version.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
