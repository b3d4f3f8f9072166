package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
	"github.com/nexbadge/nexbadge/internal/ghactions"
	"github.com/nexbadge/nexbadge/internal/workflow"
)

var (
	initActionsRepoDir  string
	initActionsSchedule string
)

var initActionsCmd = &cobra.Command{
	Use:   "init-actions",
	Short: "Set up the scheduled automation job",
	Long: `Push the credentials and tracked-mod mirror to the automation
repository, write the scheduled workflow file into a local checkout, and
enable the workflow. Commit and push the workflow file afterwards.`,
	Run: runInitActions,
}

func init() {
	initActionsCmd.Flags().StringVar(&initActionsRepoDir, "repo-dir", ".", "Local checkout of the automation repository")
	initActionsCmd.Flags().StringVar(&initActionsSchedule, "schedule", "", "Cron schedule for the sync job")
	rootCmd.AddCommand(initActionsCmd)
}

func runInitActions(cmd *cobra.Command, args []string) {
	reg := mustLoadRegistry()
	if reg.GistID == "" {
		logger.Error("No document gist configured. Run 'nexbadge init' first.")
		os.Exit(exitFailure)
	}
	nexusKey := requireNexusKey(reg)
	gitToken := requireGitToken(reg)
	actions := actionsClient(reg)

	ctx := context.Background()
	failed := false

	if err := actions.SetSecret(ctx, ghactions.SecretNexusKey, nexusKey); err != nil {
		output.PrintError("failed to push NexusMods key: %v", err)
		failed = true
	}
	if err := actions.SetSecret(ctx, ghactions.SecretGitToken, gitToken); err != nil {
		output.PrintError("failed to push GitHub token: %v", err)
		failed = true
	}

	encoded, err := reg.EncodeItems()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(exitFailure)
	}
	if err := actions.SetVariable(ctx, ghactions.VarTrackedMods, encoded); err != nil {
		output.PrintError("failed to push tracked mod list: %v", err)
		failed = true
	}
	if err := actions.SetVariable(ctx, ghactions.VarGistID, reg.GistID); err != nil {
		output.PrintError("failed to push gist id: %v", err)
		failed = true
	}

	path, err := workflow.Generate(initActionsSchedule).WriteFile(initActionsRepoDir)
	if err != nil {
		output.PrintError("failed to write workflow file: %v", err)
		failed = true
	} else {
		output.PrintSuccess("Wrote %s", path)
	}

	if err := actions.SetWorkflowEnabled(ctx, true); err != nil {
		// Enabling fails until the workflow file has been pushed once.
		output.PrintWarning("could not enable the workflow yet: %v", err)
	}

	if failed {
		os.Exit(exitFailure)
	}
	output.PrintSuccess("Automation configured for %s/%s", reg.Owner, reg.Repo)
	output.PrintInfo("Commit and push %s to activate the schedule", workflow.RelPath)
}
