package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
)

var addCmd = &cobra.Command{
	Use:   "add DOMAIN MOD_ID",
	Short: "Start tracking a mod",
	Long: `Start tracking a mod identified by its game domain and numeric mod id,
e.g. 'nexbadge add eldenring 4825'. Run 'nexbadge sync' afterwards to
publish its counts.`,
	Args: cobra.ExactArgs(2),
	Run:  runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	domain, id, err := parseItemArgs(args)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(exitFailure)
	}

	reg := mustLoadOrInitRegistry()
	if err := reg.AddItem(domain, id); err != nil {
		logger.Error("%v", err)
		os.Exit(exitFailure)
	}
	saveRegistry(reg)

	output.PrintSuccess("Now tracking %s", output.FormatItem(domain, id))
	output.PrintInfo("Run 'nexbadge sync' to publish its download counts")
}
