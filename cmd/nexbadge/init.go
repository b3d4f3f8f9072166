package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
	"github.com/nexbadge/nexbadge/internal/gist"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the published document gist",
	Long: `Create the private gist that will hold the published download counts
and record its id in the registry. Run once per setup; use
'nexbadge set --gist-id' to adopt an existing gist instead.`,
	Run: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	reg := mustLoadOrInitRegistry()
	if reg.GistID != "" {
		logger.Error("A document gist is already configured (%s). Use 'nexbadge set --gist-id' to replace it.", reg.GistID)
		os.Exit(exitFailure)
	}

	client := gist.NewClient("", requireGitToken(reg))
	id, snap, err := client.Create(context.Background(), gist.NewDocument())
	if err != nil {
		logger.Error("failed to create gist: %v", err)
		os.Exit(exitFailure)
	}

	reg.GistID = id
	saveRegistry(reg)

	output.PrintSuccess("Created document gist %s", id)
	output.PrintInfo("Raw URL: %s", snap.RawURL)
	output.PrintInfo("Run 'nexbadge sync' to publish your tracked mods")
}
