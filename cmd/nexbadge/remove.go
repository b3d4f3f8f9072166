package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
)

var removeCmd = &cobra.Command{
	Use:   "remove DOMAIN MOD_ID",
	Short: "Stop tracking a mod",
	Long: `Stop tracking a mod. Its entry is deleted from the published document
on the next sync; entries owned by other writers are left alone.`,
	Args: cobra.ExactArgs(2),
	Run:  runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) {
	domain, id, err := parseItemArgs(args)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(exitFailure)
	}

	reg := mustLoadRegistry()
	if err := reg.RemoveItem(domain, id); err != nil {
		logger.Error("%v", err)
		os.Exit(exitFailure)
	}
	saveRegistry(reg)

	output.PrintSuccess("Stopped tracking %s", output.FormatItem(domain, id))
	output.PrintInfo("Run 'nexbadge sync' to remove it from the published document")
}
