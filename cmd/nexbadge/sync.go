package main

import (
	"bytes"
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/badge"
	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
	"github.com/nexbadge/nexbadge/internal/ghactions"
	"github.com/nexbadge/nexbadge/internal/reconcile"
	"github.com/nexbadge/nexbadge/internal/registry"
)

var (
	syncRemote bool
	syncOutput string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Publish current download counts",
	Long: `Fetch download counts for every tracked mod, merge them into the
published document without touching entries owned by other writers, and
regenerate the local badge file. With --remote the registry is
reconstructed from the job environment and no local files are written.`,
	Run: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncRemote, "remote", false, "Run in scheduled-job mode")
	syncCmd.Flags().StringVar(&syncOutput, "output", "nexus_badges.md", "Badge file to write")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) {
	if syncRemote {
		runRemoteSync()
		return
	}

	reg := mustLoadRegistry()
	engine := &reconcile.Engine{
		Documents: gistClient(reg),
		Counts:    nexusClient(reg),
	}
	if reg.AutomationConfigured() {
		engine.Variables = ghactions.NewClient(reg.Owner, reg.Repo, reg.ResolvedGitToken())
	}

	report := runEngine(engine, reg)
	saveRegistry(reg)

	if err := writeBadgeFile(reg, report.RawURL); err != nil {
		logger.Error("failed to write badge file: %v", err)
		os.Exit(exitFailure)
	}

	reportSync(report)
	output.PrintSuccess("Wrote %s", syncOutput)
	if report.Partial() {
		os.Exit(exitPartial)
	}
}

// runRemoteSync is the scheduled-job path: state comes from the environment
// and only the remote document is updated.
func runRemoteSync() {
	if err := logger.Default().EnableFileLogging(); err != nil {
		logger.Warn("file logging unavailable: %v", err)
	}
	defer logger.Default().Close()

	reg, err := registry.FromEnvironment()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(exitFailure)
	}

	engine := &reconcile.Engine{
		Documents: gistClient(reg),
		Counts:    nexusClient(reg),
	}
	report := runEngine(engine, reg)

	reportSync(report)
	if report.Partial() {
		os.Exit(exitPartial)
	}
}

func runEngine(engine *reconcile.Engine, reg *registry.Registry) *reconcile.SyncReport {
	report, err := engine.Sync(context.Background(), reg)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrNotInitialized):
			logger.Error("No document gist configured. Run 'nexbadge init' first.")
		case errors.Is(err, reconcile.ErrNoItems):
			logger.Error("No mods are tracked. Add one with 'nexbadge add'.")
		case errors.Is(err, reconcile.ErrSyncConflict):
			logger.Error("%v", err)
			logger.Info("Another writer kept updating the document; try again in a moment.")
		default:
			logger.Error("sync failed: %v", err)
		}
		os.Exit(exitFailure)
	}
	return report
}

func reportSync(report *reconcile.SyncReport) {
	for _, item := range report.Updated {
		output.PrintSuccess("%s: %d total, %d unique",
			output.FormatItem(item.Domain, item.ID), item.Total, item.Unique)
	}
	for _, f := range report.Failed {
		output.PrintError("%s: %v", output.FormatItem(f.Key.Domain, f.Key.ID), f.Err)
	}

	if report.DocumentChanged {
		output.PrintInfo("Published document updated")
	} else {
		output.PrintInfo("Published document already up to date")
	}

	if report.AutomationErr != nil {
		output.PrintWarning("automation mirror not updated: %v", report.AutomationErr)
	} else if report.AutomationPushed {
		output.PrintInfo("Automation mirror updated")
	}
}

// writeBadgeFile renders one badge block per tracked mod into the output
// file. The write is atomic.
func writeBadgeFile(reg *registry.Registry, rawURL string) error {
	items := make([]badge.Item, len(reg.Items))
	for i, it := range reg.Items {
		items[i] = badge.Item{
			Key:  it.Key().String(),
			Name: it.Name,
			Link: it.Key().PageURL(),
		}
	}

	var buf bytes.Buffer
	if err := badge.WriteArtifact(&buf, rawURL, items, reg.Style); err != nil {
		return err
	}

	tmp := syncOutput + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, syncOutput); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
