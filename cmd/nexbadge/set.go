package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
	"github.com/nexbadge/nexbadge/internal/ghactions"
	"github.com/nexbadge/nexbadge/internal/registry"
)

var (
	setGitToken string
	setNexusKey string
	setGistID   string
	setOwner    string
	setRepo     string
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set credentials and the automation target",
	Long: `Store credentials, the document gist id, and the automation target
repository. When a target repository is configured, credential changes are
also pushed to its repository secrets so the scheduled job keeps working.`,
	Run: runSet,
}

func init() {
	setCmd.Flags().StringVar(&setGitToken, "git-token", "", "GitHub personal access token")
	setCmd.Flags().StringVar(&setNexusKey, "nexus-key", "", "NexusMods API key")
	setCmd.Flags().StringVar(&setGistID, "gist-id", "", "Gist id of the published document")
	setCmd.Flags().StringVar(&setOwner, "owner", "", "Automation repository owner")
	setCmd.Flags().StringVar(&setRepo, "repo", "", "Automation repository name")
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) {
	if setGitToken == "" && setNexusKey == "" && setGistID == "" && setOwner == "" && setRepo == "" {
		logger.Error("Nothing to set. See 'nexbadge set --help' for the available fields.")
		os.Exit(exitFailure)
	}

	reg := mustLoadOrInitRegistry()

	if setGitToken != "" {
		reg.GitToken = setGitToken
	}
	if setNexusKey != "" {
		reg.NexusKey = setNexusKey
	}
	if setGistID != "" {
		reg.GistID = setGistID
	}
	if setOwner != "" {
		reg.Owner = setOwner
	}
	if setRepo != "" {
		reg.Repo = setRepo
	}
	saveRegistry(reg)
	output.PrintSuccess("Registry updated")

	mirrorCredentials(reg)
}

// mirrorCredentials pushes changed credentials and the gist id to the
// automation repository. Without a configured target this never touches the
// network.
func mirrorCredentials(reg *registry.Registry) {
	if !reg.AutomationConfigured() {
		return
	}
	if setGitToken == "" && setNexusKey == "" && setGistID == "" {
		return
	}

	ctx := context.Background()
	actions := ghactions.NewClient(reg.Owner, reg.Repo, reg.ResolvedGitToken())

	if setNexusKey != "" {
		if err := actions.SetSecret(ctx, ghactions.SecretNexusKey, setNexusKey); err != nil {
			output.PrintWarning("failed to mirror NexusMods key to %s/%s: %v", reg.Owner, reg.Repo, err)
		} else {
			output.PrintSuccess("Mirrored NexusMods key to %s/%s", reg.Owner, reg.Repo)
		}
	}
	if setGitToken != "" {
		if err := actions.SetSecret(ctx, ghactions.SecretGitToken, setGitToken); err != nil {
			output.PrintWarning("failed to mirror GitHub token to %s/%s: %v", reg.Owner, reg.Repo, err)
		} else {
			output.PrintSuccess("Mirrored GitHub token to %s/%s", reg.Owner, reg.Repo)
		}
	}
	if setGistID != "" {
		if err := actions.SetVariable(ctx, ghactions.VarGistID, setGistID); err != nil {
			output.PrintWarning("failed to mirror gist id to %s/%s: %v", reg.Owner, reg.Repo, err)
		} else {
			output.PrintSuccess("Mirrored gist id to %s/%s", reg.Owner, reg.Repo)
		}
	}
}
