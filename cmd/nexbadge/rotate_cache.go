package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/cachekey"
	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
	"github.com/nexbadge/nexbadge/internal/ghactions"
	"github.com/nexbadge/nexbadge/internal/registry"
	"github.com/nexbadge/nexbadge/internal/release"
)

var rotateCacheDir string

var rotateCacheCmd = &cobra.Command{
	Use:    "rotate-cache",
	Hidden: true,
	Short:  "Rotate the scheduled job's binary cache key",
	Long: `Refresh the cached release binary when the published version has moved
past the one the cache was built for. Runs inside the scheduled job, which
supplies GITHUB_REPOSITORY and GIT_TOKEN.`,
	Run: runRotateCache,
}

func init() {
	rotateCacheCmd.Flags().StringVar(&rotateCacheDir, "dir", "nexbadge-bin", "Directory the cached binary lives under")
	rootCmd.AddCommand(rotateCacheCmd)
}

func runRotateCache(cmd *cobra.Command, args []string) {
	owner, repo, ok := strings.Cut(os.Getenv("GITHUB_REPOSITORY"), "/")
	if !ok || owner == "" || repo == "" {
		logger.Error("GITHUB_REPOSITORY is not set; rotate-cache only runs inside the scheduled job")
		os.Exit(exitFailure)
	}
	token := os.Getenv(registry.EnvGitToken)
	if token == "" {
		logger.Error("%s is not set", registry.EnvGitToken)
		os.Exit(exitFailure)
	}

	actions := ghactions.NewClient(owner, repo, token)
	releases := release.NewClient()
	manager := cachekey.NewManager(
		&cachekey.VariableRecord{Actions: actions},
		&cachekey.ActionsArtifactStore{Release: releases, Actions: actions, Dir: rotateCacheDir},
		&cachekey.ReleaseVersionSource{Release: releases},
	)

	decision, err := manager.RotateIfStale(context.Background())
	switch {
	case errors.Is(err, cachekey.ErrRotationPartial):
		// The record already names the new key; the leftover entry is
		// retried on the next rotation.
		output.PrintWarning("%v", err)
	case err != nil:
		logger.Error("%v", err)
		os.Exit(exitFailure)
	}

	switch decision.Action {
	case cachekey.NoAction:
		output.PrintInfo("Cache key is current")
	case cachekey.Rotated:
		output.PrintSuccess("Rotated cache key to %s", decision.NewKey)
		if decision.OldKeyDeleted {
			output.PrintInfo("Old cache entry deleted")
		}
	}
}
