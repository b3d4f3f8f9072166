package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
	"github.com/nexbadge/nexbadge/internal/common/version"
	"github.com/nexbadge/nexbadge/internal/release"
)

var versionRemote bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show version information. With --remote the latest published version
is checked as well; the exit code reports the result so the scheduled job
can react to it (70 when an update is available, 20 when the check failed).`,
	Run: runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionRemote, "remote", false, "Check the latest published version")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Println(version.Info())
	if !versionRemote {
		return
	}

	meta, err := release.NewClient().Latest(context.Background())
	if err != nil {
		logger.Error("version check failed: %v", err)
		os.Exit(exitVersionCheckFailed)
	}

	if release.NewerThan(meta.Latest, version.Short()) {
		output.PrintWarning("Update available: %s", meta.Latest)
		if meta.Message != "" {
			output.PrintInfo("%s", meta.Message)
		}
		os.Exit(exitUpdateAvailable)
	}
	output.PrintSuccess("Up to date")
}
