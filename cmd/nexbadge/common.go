package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/ghactions"
	"github.com/nexbadge/nexbadge/internal/gist"
	"github.com/nexbadge/nexbadge/internal/nexus"
	"github.com/nexbadge/nexbadge/internal/registry"
)

// Process exit codes. The scheduled job inspects these to decide its next
// step, so they are part of the tool's contract.
const (
	exitOK                 = 0
	exitFailure            = 1
	exitPartial            = 3
	exitVersionCheckFailed = 20
	exitUpdateAvailable    = 70
)

// mustLoadRegistry loads the registry or exits with a setup hint.
func mustLoadRegistry() *registry.Registry {
	reg, err := registry.Load()
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			logger.Error("No registry found. Track a mod with 'nexbadge add' first.")
		} else {
			logger.Error("%v", err)
		}
		os.Exit(exitFailure)
	}
	return reg
}

// mustLoadOrInitRegistry loads the registry, starting a fresh one when none
// exists yet.
func mustLoadOrInitRegistry() *registry.Registry {
	reg, err := registry.LoadOrInit()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(exitFailure)
	}
	return reg
}

// saveRegistry persists the registry or exits.
func saveRegistry(reg *registry.Registry) {
	if err := reg.Save(); err != nil {
		logger.Error("failed to save registry: %v", err)
		os.Exit(exitFailure)
	}
}

// parseItemArgs parses the DOMAIN MOD_ID argument pair.
func parseItemArgs(args []string) (string, uint64, error) {
	domain := strings.TrimSpace(args[0])
	if domain == "" {
		return "", 0, fmt.Errorf("game domain must not be empty")
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("mod id must be a positive number: %q", args[1])
	}
	return domain, id, nil
}

// requireGitToken resolves the GitHub token or exits with a setup hint.
func requireGitToken(reg *registry.Registry) string {
	token := reg.ResolvedGitToken()
	if token == "" {
		logger.Error("No GitHub token configured. Set one with 'nexbadge set --git-token' or the GIT_TOKEN environment variable.")
		os.Exit(exitFailure)
	}
	return token
}

// requireNexusKey resolves the NexusMods API key or exits with a setup hint.
func requireNexusKey(reg *registry.Registry) string {
	key := reg.ResolvedNexusKey()
	if key == "" {
		logger.Error("No NexusMods API key configured. Set one with 'nexbadge set --nexus-key' or the NEXUS_KEY environment variable.")
		os.Exit(exitFailure)
	}
	return key
}

// gistClient builds the document client for the configured gist.
func gistClient(reg *registry.Registry) *gist.Client {
	return gist.NewClient(reg.GistID, requireGitToken(reg))
}

// nexusClient builds the count fetcher.
func nexusClient(reg *registry.Registry) *nexus.Client {
	return nexus.NewClient(requireNexusKey(reg))
}

// actionsClient builds the automation config client, or exits when no
// target repository is configured.
func actionsClient(reg *registry.Registry) *ghactions.Client {
	if !reg.AutomationConfigured() {
		logger.Error("No automation repository configured. Set one with 'nexbadge set --owner --repo'.")
		os.Exit(exitFailure)
	}
	return ghactions.NewClient(reg.Owner, reg.Repo, requireGitToken(reg))
}
