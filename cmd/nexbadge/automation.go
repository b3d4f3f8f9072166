package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
)

var automationCmd = &cobra.Command{
	Use:   "automation",
	Short: "Control the scheduled automation job",
}

var automationEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the scheduled sync workflow",
	Run: func(cmd *cobra.Command, args []string) {
		setWorkflowState(true)
	},
}

var automationDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the scheduled sync workflow",
	Run: func(cmd *cobra.Command, args []string) {
		setWorkflowState(false)
	},
}

func init() {
	automationCmd.AddCommand(automationEnableCmd)
	automationCmd.AddCommand(automationDisableCmd)
	rootCmd.AddCommand(automationCmd)
}

func setWorkflowState(enabled bool) {
	reg := mustLoadRegistry()
	actions := actionsClient(reg)

	if err := actions.SetWorkflowEnabled(context.Background(), enabled); err != nil {
		logger.Error("%v", err)
		os.Exit(exitFailure)
	}

	if enabled {
		output.PrintSuccess("Scheduled workflow enabled for %s/%s", reg.Owner, reg.Repo)
	} else {
		output.PrintSuccess("Scheduled workflow disabled for %s/%s", reg.Owner, reg.Repo)
	}
}
